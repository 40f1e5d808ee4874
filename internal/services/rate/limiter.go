package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	likeWindow   = time.Minute
	reportWindow = 10 * time.Minute
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// Limiter applies fixed-window limits per user. A zero limit disables that
// check. A nil *Limiter allows everything.
type Limiter struct {
	store            WindowStore
	likesPerMinute   int
	reportsPer10Mins int
}

type Limits struct {
	LikesPerMinute   int
	ReportsPer10Mins int
}

func NewLimiter(store WindowStore, limits Limits) *Limiter {
	if limits.LikesPerMinute < 0 {
		limits.LikesPerMinute = 0
	}
	if limits.ReportsPer10Mins < 0 {
		limits.ReportsPer10Mins = 0
	}

	return &Limiter{
		store:            store,
		likesPerMinute:   limits.LikesPerMinute,
		reportsPer10Mins: limits.ReportsPer10Mins,
	}
}

// AllowLike counts one like for userID and returns TooFastError once the
// per-minute limit is exceeded.
func (l *Limiter) AllowLike(ctx context.Context, userID int64) error {
	if l == nil || l.likesPerMinute <= 0 {
		return nil
	}

	retryAfter, allowed, err := l.hit(ctx, likeKey(userID), l.likesPerMinute, likeWindow)
	if err != nil {
		return TempUnavailableError{Err: err}
	}
	if !allowed {
		return TooFastError{RetryAfterSec: retryAfter}
	}
	return nil
}

// AllowReport counts one report for userID and returns TooManyReportsError
// once the ten-minute limit is exceeded.
func (l *Limiter) AllowReport(ctx context.Context, userID int64) error {
	if l == nil || l.reportsPer10Mins <= 0 {
		return nil
	}

	retryAfter, allowed, err := l.hit(ctx, reportKey(userID), l.reportsPer10Mins, reportWindow)
	if err != nil {
		return TempUnavailableError{Err: err}
	}
	if !allowed {
		return TooManyReportsError{RetryAfterSec: retryAfter}
	}
	return nil
}

// RetryAfterLike reports how long userID must wait before the next like is
// accepted, without counting a hit.
func (l *Limiter) RetryAfterLike(ctx context.Context, userID int64) (int64, error) {
	if l == nil || l.likesPerMinute <= 0 {
		return 0, nil
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	count, ttl, err := l.store.WindowState(ctx, likeKey(userID))
	if err != nil {
		return 0, err
	}
	if count >= int64(l.likesPerMinute) {
		return ceilSeconds(ttl), nil
	}
	return 0, nil
}

func (l *Limiter) hit(ctx context.Context, key string, limit int, window time.Duration) (int64, bool, error) {
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	count, ttl, err := l.store.IncrementWindow(ctx, key, window)
	if err != nil {
		return 0, false, err
	}
	if count > int64(limit) {
		return ceilSeconds(ttl), false, nil
	}
	return 0, true, nil
}

func likeKey(userID int64) string {
	return "rate:likes:min:" + strconv.FormatInt(userID, 10)
}

func reportKey(userID int64) string {
	return "rate:reports:10m:" + strconv.FormatInt(userID, 10)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return sec
}

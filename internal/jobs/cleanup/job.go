package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRetention = 30 * 24 * time.Hour
	defaultInterval  = 6 * time.Hour
)

type readNotificationPurger interface {
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job purges read notifications past their retention.
type Job struct {
	notifications readNotificationPurger
	retention     time.Duration
	interval      time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

func NewNotificationRetentionJob(purger readNotificationPurger, retention, interval time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = defaultRetention
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		notifications: purger,
		retention:     retention,
		interval:      interval,
		now:           time.Now,
		logger:        logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.notifications == nil {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	deleted, err := j.notifications.DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge read notifications: %w", err)
	}
	if deleted > 0 {
		j.logger.Info("cleanup read notifications completed",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}

// Start runs the job once, then every interval until ctx is done. Failures
// are logged and the loop keeps going.
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		if err := j.Run(ctx); err != nil && ctx.Err() == nil {
			j.logger.Warn("notification cleanup failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

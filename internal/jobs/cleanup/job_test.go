package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/studymate/backend/internal/domain/enums"
	"github.com/studymate/backend/internal/domain/model"
	"github.com/studymate/backend/internal/repo/memory"
)

func TestRunPurgesOnlyOldReadNotifications(t *testing.T) {
	now := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	clock := now.Add(-40 * 24 * time.Hour)
	store.SetClock(func() time.Time { return clock })

	var oldRead, oldUnread, freshRead int64
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
		repo := store.Notifications()
		a, err := repo.Create(ctx, tx, model.Notification{UserID: 1, Message: "old read", Type: enums.NotificationTypeLike})
		if err != nil {
			return err
		}
		b, err := repo.Create(ctx, tx, model.Notification{UserID: 1, Message: "old unread", Type: enums.NotificationTypeLike})
		if err != nil {
			return err
		}
		clock = now.Add(-time.Hour)
		c, err := repo.Create(ctx, tx, model.Notification{UserID: 1, Message: "fresh read", Type: enums.NotificationTypeMatch})
		if err != nil {
			return err
		}
		oldRead, oldUnread, freshRead = a.ID, b.ID, c.ID

		if _, err := repo.MarkRead(ctx, tx, 1, a.ID); err != nil {
			return err
		}
		_, err = repo.MarkRead(ctx, tx, 1, c.ID)
		return err
	})
	if err != nil {
		t.Fatalf("seed notifications: %v", err)
	}

	job := NewNotificationRetentionJob(store.Notifications(), 30*24*time.Hour, time.Hour, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	left := map[int64]bool{}
	for _, n := range store.Notifications().All() {
		left[n.ID] = true
	}
	if left[oldRead] {
		t.Fatalf("old read notification should be purged")
	}
	if !left[oldUnread] || !left[freshRead] {
		t.Fatalf("unread and fresh notifications must stay: %v", left)
	}
}

func TestRunWrapsStoreError(t *testing.T) {
	boom := errors.New("db down")
	job := NewNotificationRetentionJob(purgerStub{err: boom}, 0, 0, nil)

	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if job.retention != defaultRetention || job.interval != defaultInterval {
		t.Fatalf("expected defaults, got retention=%s interval=%s", job.retention, job.interval)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	purger := &countingPurger{calls: make(chan struct{}, 4)}
	job := NewNotificationRetentionJob(purger, time.Hour, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	select {
	case <-purger.calls:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an immediate first run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not stop after cancel")
	}
}

type purgerStub struct {
	err error
}

func (p purgerStub) DeleteReadOlderThan(context.Context, time.Time) (int64, error) {
	return 0, p.err
}

type countingPurger struct {
	calls chan struct{}
}

func (p *countingPurger) DeleteReadOlderThan(context.Context, time.Time) (int64, error) {
	select {
	case p.calls <- struct{}{}:
	default:
	}
	return 0, nil
}

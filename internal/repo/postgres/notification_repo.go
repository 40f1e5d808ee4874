package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studymate/backend/internal/domain/enums"
	"github.com/studymate/backend/internal/domain/model"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

func (r *NotificationRepo) Create(ctx context.Context, tx pgx.Tx, n model.Notification) (model.Notification, error) {
	if n.UserID <= 0 {
		return model.Notification{}, fmt.Errorf("invalid notification payload")
	}
	if err := requireTx(tx); err != nil {
		return model.Notification{}, err
	}

	if err := tx.QueryRow(ctx, `
INSERT INTO notifications (
	user_id,
	message,
	type,
	related_entity_id,
	read,
	created_at
) VALUES ($1, $2, $3, $4, FALSE, NOW())
RETURNING id, read, created_at
`, n.UserID, n.Message, string(n.Type), n.RelatedEntityID).Scan(&n.ID, &n.Read, &n.CreatedAt); err != nil {
		return model.Notification{}, fmt.Errorf("create notification: %w", err)
	}

	return n, nil
}

// ListForUser returns the newest notifications first.
func (r *NotificationRepo) ListForUser(ctx context.Context, tx pgx.Tx, userID int64, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if err := requireTx(tx); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT id, user_id, message, type, related_entity_id, read, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]model.Notification, 0, limit)
	for rows.Next() {
		var (
			n       model.Notification
			rawType string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &rawType, &n.RelatedEntityID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if n.Type, err = enums.ParseNotificationType(rawType); err != nil {
			return nil, fmt.Errorf("decode notification %d: %w", n.ID, err)
		}
		items = append(items, n)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate notifications: %w", rows.Err())
	}

	return items, nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, tx pgx.Tx, userID int64) (int, error) {
	if err := requireTx(tx); err != nil {
		return 0, err
	}

	var count int
	if err := tx.QueryRow(ctx, `
SELECT COUNT(*)
FROM notifications
WHERE user_id = $1 AND read = FALSE
`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	return count, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, tx pgx.Tx, userID, notificationID int64) (bool, error) {
	if err := requireTx(tx); err != nil {
		return false, err
	}

	result, err := tx.Exec(ctx, `
UPDATE notifications
SET read = TRUE
WHERE id = $1 AND user_id = $2
`, notificationID, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	if err := requireTx(tx); err != nil {
		return 0, err
	}

	result, err := tx.Exec(ctx, `
UPDATE notifications
SET read = TRUE
WHERE user_id = $1 AND read = FALSE
`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *NotificationRepo) DeleteForUser(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	if err := requireTx(tx); err != nil {
		return 0, err
	}

	result, err := tx.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user notifications: %w", err)
	}

	return result.RowsAffected(), nil
}

// DeleteReadOlderThan runs outside request transactions; it is driven by the
// retention job.
func (r *NotificationRepo) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM notifications
WHERE read = TRUE AND created_at < $1
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete stale notifications: %w", err)
	}

	return result.RowsAffected(), nil
}

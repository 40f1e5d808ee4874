package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studymate/backend/internal/domain/model"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, tx pgx.Tx, msg model.Message) (model.Message, error) {
	if msg.ChannelID <= 0 || msg.SenderID <= 0 {
		return model.Message{}, fmt.Errorf("invalid message payload")
	}
	if err := requireTx(tx); err != nil {
		return model.Message{}, err
	}

	if err := tx.QueryRow(ctx, `
INSERT INTO chat_messages (
	channel_id,
	sender_id,
	content,
	created_at
) VALUES ($1, $2, $3, NOW())
RETURNING id, created_at
`, msg.ChannelID, msg.SenderID, msg.Content).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return model.Message{}, fmt.Errorf("create message: %w", err)
	}

	return msg, nil
}

// ListByChannel returns the channel's messages in creation order.
func (r *MessageRepo) ListByChannel(ctx context.Context, tx pgx.Tx, channelID int64) ([]model.Message, error) {
	if err := requireTx(tx); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT id, channel_id, sender_id, content, created_at
FROM chat_messages
WHERE channel_id = $1
ORDER BY id ASC
`, channelID)
	if err != nil {
		return nil, fmt.Errorf("list channel messages: %w", err)
	}
	defer rows.Close()

	items := make([]model.Message, 0)
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.ID, &msg.ChannelID, &msg.SenderID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, msg)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate messages: %w", rows.Err())
	}

	return items, nil
}

func (r *MessageRepo) DeleteByChannel(ctx context.Context, tx pgx.Tx, channelID int64) (int64, error) {
	if err := requireTx(tx); err != nil {
		return 0, err
	}

	result, err := tx.Exec(ctx, `DELETE FROM chat_messages WHERE channel_id = $1`, channelID)
	if err != nil {
		return 0, fmt.Errorf("delete channel messages: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *MessageRepo) DeleteBySender(ctx context.Context, tx pgx.Tx, senderID int64) (int64, error) {
	if err := requireTx(tx); err != nil {
		return 0, err
	}

	result, err := tx.Exec(ctx, `DELETE FROM chat_messages WHERE sender_id = $1`, senderID)
	if err != nil {
		return 0, fmt.Errorf("delete sender messages: %w", err)
	}

	return result.RowsAffected(), nil
}

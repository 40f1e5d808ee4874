package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/studymate/backend/internal/domain/model"
)

// NotificationEvent is the payload subscribers receive on a user's channel.
type NotificationEvent struct {
	EventID      string             `json:"event_id"`
	UserID       int64              `json:"user_id"`
	Notification model.Notification `json:"notification"`
}

type NotificationPublisher struct {
	client *goredis.Client
	prefix string
}

func NewNotificationPublisher(client *goredis.Client, prefix string) *NotificationPublisher {
	if prefix == "" {
		prefix = "notifications:"
	}
	return &NotificationPublisher{client: client, prefix: prefix}
}

func (p *NotificationPublisher) Channel(userID int64) string {
	return p.prefix + strconv.FormatInt(userID, 10)
}

func (p *NotificationPublisher) Publish(ctx context.Context, n model.Notification) error {
	if p.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	payload, err := json.Marshal(NotificationEvent{
		EventID:      uuid.NewString(),
		UserID:       n.UserID,
		Notification: n,
	})
	if err != nil {
		return fmt.Errorf("marshal notification event: %w", err)
	}

	if err := p.client.Publish(ctx, p.Channel(n.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification %d: %w", n.ID, err)
	}
	return nil
}

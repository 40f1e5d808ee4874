package dto

import "time"

type NotificationResponse struct {
	ID              int64     `json:"id"`
	Message         string    `json:"message"`
	Type            string    `json:"type"`
	RelatedEntityID int64     `json:"related_entity_id"`
	Read            bool      `json:"read"`
	CreatedAt       time.Time `json:"created_at"`
}

type NotificationsResponse struct {
	Items       []NotificationResponse `json:"items"`
	UnreadCount int                    `json:"unread_count"`
}

type MarkAllReadResponse struct {
	OK      bool  `json:"ok"`
	Updated int64 `json:"updated"`
}

package model

import (
	"time"

	"github.com/studymate/backend/internal/domain/enums"
)

type Notification struct {
	ID              int64                  `json:"id"`
	UserID          int64                  `json:"user_id"`
	Message         string                 `json:"message"`
	Type            enums.NotificationType `json:"type"`
	RelatedEntityID int64                  `json:"related_entity_id"`
	Read            bool                   `json:"read"`
	CreatedAt       time.Time              `json:"created_at"`
}

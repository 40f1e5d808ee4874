package dto

import "time"

type CreateChannelRequest struct {
	Type           string  `json:"type"`
	Name           string  `json:"name"`
	Image          string  `json:"image"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

type UpdateChannelRequest struct {
	Name           *string `json:"name"`
	Image          *string `json:"image"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

type ParticipantResponse struct {
	UserID   int64     `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type ChannelResponse struct {
	ID           int64                 `json:"id"`
	Type         string                `json:"type"`
	Name         string                `json:"name"`
	Image        string                `json:"image,omitempty"`
	Participants []ParticipantResponse `json:"participants"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type ChannelsResponse struct {
	Items []ChannelResponse `json:"items"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type MessageResponse struct {
	ID        int64     `json:"id"`
	ChannelID int64     `json:"channel_id"`
	SenderID  int64     `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type MessagesResponse struct {
	Items []MessageResponse `json:"items"`
}

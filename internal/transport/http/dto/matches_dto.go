package dto

import "time"

type TargetRequest struct {
	TargetID int64 `json:"target_id"`
}

type MatchResponse struct {
	ID        int64     `json:"id"`
	UserAID   int64     `json:"user_a_id"`
	UserBID   int64     `json:"user_b_id"`
	Status    string    `json:"status"`
	LikedByA  bool      `json:"liked_by_a"`
	LikedByB  bool      `json:"liked_by_b"`
	ChannelID *int64    `json:"channel_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

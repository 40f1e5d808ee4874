package channels

import (
	"time"

	"github.com/studymate/backend/internal/domain/enums"
	"github.com/studymate/backend/internal/domain/model"
)

type ChannelView struct {
	ID           int64
	Type         enums.ChannelType
	Name         string
	Image        string
	Participants []ParticipantView
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ParticipantView struct {
	UserID   int64
	Role     enums.ParticipantRole
	JoinedAt time.Time
}

type MessageView struct {
	ID        int64
	ChannelID int64
	SenderID  int64
	Content   string
	CreatedAt time.Time
}

func ToChannelView(ch model.Channel) ChannelView {
	participants := make([]ParticipantView, 0, len(ch.Participants))
	for _, p := range ch.Participants {
		participants = append(participants, ParticipantView{
			UserID:   p.UserID,
			Role:     p.Role,
			JoinedAt: p.JoinedAt,
		})
	}

	return ChannelView{
		ID:           ch.ID,
		Type:         ch.Type,
		Name:         ch.Name,
		Image:        ch.Image,
		Participants: participants,
		CreatedAt:    ch.CreatedAt,
		UpdatedAt:    ch.UpdatedAt,
	}
}

func ToChannelViews(items []model.Channel) []ChannelView {
	out := make([]ChannelView, 0, len(items))
	for _, ch := range items {
		out = append(out, ToChannelView(ch))
	}
	return out
}

func ToMessageView(msg model.Message) MessageView {
	return MessageView{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func ToMessageViews(items []model.Message) []MessageView {
	out := make([]MessageView, 0, len(items))
	for _, msg := range items {
		out = append(out, ToMessageView(msg))
	}
	return out
}

package model

import (
	"time"

	"github.com/studymate/backend/internal/domain/enums"
)

// Channel owns its participants. Participants keep only the channel id.
type Channel struct {
	ID           int64             `json:"id"`
	Type         enums.ChannelType `json:"type"`
	Name         string            `json:"name"`
	Image        string            `json:"image"`
	Participants []Participant     `json:"participants"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type Participant struct {
	ChannelID int64                 `json:"channel_id"`
	UserID    int64                 `json:"user_id"`
	Role      enums.ParticipantRole `json:"role"`
	JoinedAt  time.Time             `json:"joined_at"`
}

func (c Channel) IsIndividual() bool {
	return c.Type == enums.ChannelTypeIndividual
}

func (c Channel) HasParticipant(userID int64) bool {
	_, ok := c.Participant(userID)
	return ok
}

func (c Channel) Participant(userID int64) (Participant, bool) {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

func (c Channel) ParticipantIDs() []int64 {
	ids := make([]int64, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// HasExactly reports whether the participant set equals {a, b}.
func (c Channel) HasExactly(a, b int64) bool {
	if len(c.Participants) != 2 || a == b {
		return false
	}
	return c.HasParticipant(a) && c.HasParticipant(b)
}

func (c Channel) AdminCount() int {
	n := 0
	for _, p := range c.Participants {
		if p.Role == enums.ParticipantRoleAdmin {
			n++
		}
	}
	return n
}

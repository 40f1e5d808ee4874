package model

import (
	"time"

	"github.com/studymate/backend/internal/domain/enums"
)

// Match is the interest state of one unordered pair. UserAID is the user who
// acted first, not the smaller id.
type Match struct {
	ID        int64             `json:"id"`
	UserAID   int64             `json:"user_a_id"`
	UserBID   int64             `json:"user_b_id"`
	Status    enums.MatchStatus `json:"status"`
	LikedByA  bool              `json:"liked_by_a"`
	LikedByB  bool              `json:"liked_by_b"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (m Match) HasUser(userID int64) bool {
	return m.UserAID == userID || m.UserBID == userID
}

func (m Match) OtherUserID(userID int64) (int64, bool) {
	switch userID {
	case m.UserAID:
		return m.UserBID, true
	case m.UserBID:
		return m.UserAID, true
	default:
		return 0, false
	}
}

// LikedBy reports the like flag of userID's side.
func (m Match) LikedBy(userID int64) bool {
	if userID == m.UserAID {
		return m.LikedByA
	}
	if userID == m.UserBID {
		return m.LikedByB
	}
	return false
}

// SetLiked sets the like flag of userID's side. Unknown users are ignored.
func (m *Match) SetLiked(userID int64, liked bool) {
	switch userID {
	case m.UserAID:
		m.LikedByA = liked
	case m.UserBID:
		m.LikedByB = liked
	}
}

func (m Match) Mutual() bool {
	return m.LikedByA && m.LikedByB
}

// PairKey orders a pair so that {a,b} and {b,a} share one key.
func PairKey(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

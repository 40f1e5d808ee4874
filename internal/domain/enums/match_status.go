package enums

import "strings"

type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "PENDING"
	MatchStatusAccepted MatchStatus = "ACCEPTED"
	MatchStatusRejected MatchStatus = "REJECTED"
)

func ParseMatchStatus(raw string) (MatchStatus, error) {
	switch v := MatchStatus(strings.ToUpper(strings.TrimSpace(raw))); v {
	case MatchStatusPending, MatchStatusAccepted, MatchStatusRejected:
		return v, nil
	default:
		return "", UnknownVariantError{Enum: "match status", Value: raw}
	}
}

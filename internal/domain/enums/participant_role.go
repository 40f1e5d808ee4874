package enums

import "strings"

type ParticipantRole string

const (
	ParticipantRoleAdmin  ParticipantRole = "admin"
	ParticipantRoleMember ParticipantRole = "member"
)

func ParseParticipantRole(raw string) (ParticipantRole, error) {
	switch v := ParticipantRole(strings.ToLower(strings.TrimSpace(raw))); v {
	case ParticipantRoleAdmin, ParticipantRoleMember:
		return v, nil
	default:
		return "", UnknownVariantError{Enum: "participant role", Value: raw}
	}
}

package enums

import "strings"

type ChannelType string

const (
	ChannelTypeIndividual ChannelType = "individual"
	ChannelTypeGroup      ChannelType = "group"
)

func ParseChannelType(raw string) (ChannelType, error) {
	switch v := ChannelType(strings.ToLower(strings.TrimSpace(raw))); v {
	case ChannelTypeIndividual, ChannelTypeGroup:
		return v, nil
	default:
		return "", UnknownVariantError{Enum: "channel type", Value: raw}
	}
}

package enums

import "strings"

type NotificationType string

const (
	NotificationTypeLike  NotificationType = "LIKE"
	NotificationTypeMatch NotificationType = "MATCH"
)

func ParseNotificationType(raw string) (NotificationType, error) {
	switch v := NotificationType(strings.ToUpper(strings.TrimSpace(raw))); v {
	case NotificationTypeLike, NotificationTypeMatch:
		return v, nil
	default:
		return "", UnknownVariantError{Enum: "notification type", Value: raw}
	}
}

package validate

import (
	"strings"
	"unicode/utf8"
)

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// MaxRunes reports whether value fits in limit characters. A non-positive
// limit accepts anything.
func MaxRunes(value string, limit int) bool {
	return limit <= 0 || utf8.RuneCountInString(value) <= limit
}

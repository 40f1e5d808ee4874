package enums

import (
	"errors"
	"fmt"
)

// ErrUnknownVariant is matched by every UnknownVariantError.
var ErrUnknownVariant = errors.New("unknown enum variant")

type UnknownVariantError struct {
	Enum  string
	Value string
}

func (e UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Enum, e.Value)
}

func (e UnknownVariantError) Is(target error) bool {
	return target == ErrUnknownVariant
}

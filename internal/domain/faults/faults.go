// Package faults defines the failure kinds surfaced by the relationship
// services. Handlers translate kinds into transport responses.
package faults

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrBlocked      = errors.New("blocked")
)

// Error pairs a kind with a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

func NotFound(message string) error     { return New(ErrNotFound, message) }
func BadRequest(message string) error   { return New(ErrBadRequest, message) }
func Unauthorized(message string) error { return New(ErrUnauthorized, message) }
func Conflict(message string) error     { return New(ErrConflict, message) }
func Blocked(message string) error      { return New(ErrBlocked, message) }

// Message returns the caller-facing message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return fallback
}

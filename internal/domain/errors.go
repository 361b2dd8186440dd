package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a service returns to a caller either wraps one of
// these or is treated as an internal failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// ErrInsufficientInventory is a Conflict raised when a deduction exceeds stock.
var ErrInsufficientInventory = &Error{Kind: ErrConflict, Msg: "insufficient inventory"}

// Error carries a user-facing message and the kind it belongs to.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error { return newError(ErrValidation, format, args...) }
func NotFoundf(format string, args ...any) error { return newError(ErrNotFound, format, args...) }
func Conflictf(format string, args ...any) error { return newError(ErrConflict, format, args...) }
func Unauthorizedf(format string, args ...any) error { return newError(ErrUnauthorized, format, args...) }
func Forbiddenf(format string, args ...any) error { return newError(ErrForbidden, format, args...) }

// Message returns the user-facing text of err, or "" when err is not a
// domain error and must not be shown to clients.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return ""
}

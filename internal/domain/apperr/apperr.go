package apperr

import (
	"errors"
	"fmt"
)

// Kind sentinels. Match with errors.Is against any error built by this package.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
	ErrForbidden    = errors.New("forbidden")
)

// Error carries a stable kind plus a caller-facing message.
// Err, when set, is the underlying cause and is never shown to callers.
type Error struct {
	Kind    error
	Message string
	Err     error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Is reports whether target is the kind sentinel of e.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound builds a NotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidInput builds an InvalidInput error.
func InvalidInput(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a Conflict error.
func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// Forbidden builds a Forbidden error for a caller whose role or ownership does not allow the action.
func Forbidden(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps cause as an Internal error with a short description of what failed.
func Internal(cause error, what string) error {
	return &Error{Kind: ErrInternal, Message: what, Err: cause}
}

// Invalid wraps a domain validation error as InvalidInput, keeping its text as the message.
func Invalid(cause error) error {
	return &Error{Kind: ErrInvalidInput, Message: cause.Error(), Err: cause}
}

// KindOf returns the kind sentinel carried by err, defaulting to ErrInternal.
// PRE: err is non-nil
// POST: returns one of the kind sentinels
func KindOf(err error) error {
	for _, k := range []error{ErrNotFound, ErrInvalidInput, ErrConflict, ErrForbidden, ErrInternal} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// Message returns the caller-facing text for err. Internal errors never expose their cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == ErrInternal {
			return "internal server error"
		}
		return e.Message
	}
	return "internal server error"
}

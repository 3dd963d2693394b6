// Package apperr carries the error taxonomy shared by services and handlers.
// Services return errors tagged with a Kind; the HTTP layer maps kinds to
// status codes in one place.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected request.
type Kind int

const (
	// Internal is the default for untagged errors: unknown state, safe to
	// retry the read, never assume the write happened.
	Internal Kind = iota
	// Invalid marks a malformed body, email, role, or path.
	Invalid
	// Unauthorized marks a missing, invalid, or expired session, or a wrong
	// share-link password.
	Unauthorized
	// Forbidden marks an authenticated caller lacking the required capability.
	Forbidden
	// NotFound marks an absent trip, invitation, or share token.
	NotFound
	// Expired marks an invitation past its window.
	Expired
	// Gone marks a share link past its window.
	Gone
	// AlreadyUsed marks an invitation token that has already been consumed.
	AlreadyUsed
	// Conflict marks a duplicate collaborator or duplicate account email.
	Conflict
)

// Error is a Kind-tagged error with a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a Kind-tagged error with the given message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind and message.
func Wrap(kind Kind, err error, message string) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain. Untagged errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the caller-facing message, or a generic one for untagged
// errors so internals never leak to clients.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "An internal error occurred"
}

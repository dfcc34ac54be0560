// Package apperr defines the error type that carries the API's HTTP status
// and client-facing message from the auth and key-lifecycle layers up to the
// handlers. Handlers translate it into the standard message envelope; any
// error that is not an *Error is treated as an internal failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a terminal request error with a fixed HTTP status and message.
type Error struct {
	Status  int
	Message string
	Err     error // underlying cause, for diagnostics only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given status and client-facing message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Wrap attaches an underlying cause to a new Error.
func Wrap(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

// Internal wraps an unexpected failure (store I/O, corrupted records) as a
// 500 with a generic message prefix.
func Internal(message string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message, Err: err}
}

// From extracts an *Error from err, or wraps err as an internal error with
// the given fallback message.
func From(err error, fallback string) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(fallback, err)
}

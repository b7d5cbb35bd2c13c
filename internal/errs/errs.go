// Package errs holds the domain error kinds shared by services and handlers.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnavailable       = errors.New("dependency unavailable")
)

// ValidationError reports bad input for a single field.
type ValidationError struct {
	Field   string
	Message string
	// Err optionally classifies the failure, e.g. ErrInvalidTransition.
	Err error
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func NotFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

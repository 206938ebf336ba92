package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("you do not have permission to perform this action")
	ErrUnauthenticated    = errors.New("authentication credentials were not provided")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports malformed or out-of-range input. Field names the
// offending request field when it is known.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func conflict(message string) error {
	return fmt.Errorf("%w: %s", ErrConflict, message)
}

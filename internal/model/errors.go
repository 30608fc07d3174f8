package model

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to API clients. Handlers map these to HTTP
// status codes; stores wrap driver errors with %w so callers can still
// use errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateEmail     = errors.New("email already exists in household")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrEmptyMessage       = errors.New("message content is empty")
	ErrForbidden          = errors.New("forbidden")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for a field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

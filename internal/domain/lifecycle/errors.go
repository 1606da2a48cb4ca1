package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when the session subject has no employee record
	ErrUserNotFound = errors.New("user not found")

	// ErrNotFoundOrUnauthorized covers both a missing claim and a claim owned
	// by someone else, so callers cannot discover other claim identifiers.
	ErrNotFoundOrUnauthorized = errors.New("claim not found or not authorized")

	// ErrImmutable is returned when the claim status no longer allows mutation
	ErrImmutable = errors.New("claim is not pending or rejected")

	// ErrPersistence marks unexpected store failures
	ErrPersistence = errors.New("persistence failure")
)

// MissingFieldError reports a required payload field that was absent
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Missing field: %s", e.Field)
}

// ValidationError reports a payload field that was present but unusable
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a MissingFieldError or ValidationError
func IsValidation(err error) bool {
	var missing *MissingFieldError
	var invalid *ValidationError
	return errors.As(err, &missing) || errors.As(err, &invalid)
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrForbidden       = errors.New("access forbidden")
	ErrValidation      = errors.New("validation failed")
)

// ValidationError carries a client-facing message for malformed input.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Package apperr holds the errors the services return to the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired        = errors.New("login required")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrDuplicateUsername   = errors.New("username already taken")
	ErrNotFound            = errors.New("not found")
	ErrRangeNotSatisfiable = errors.New("requested range not satisfiable")
	ErrValidation          = errors.New("validation failed")
	ErrStore               = errors.New("store error")
)

// Validation returns an ErrValidation carrying a user-facing reason.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Store wraps an unexpected persistence failure.
func Store(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
}

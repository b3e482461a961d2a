package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on uniqueness or reference violations
	ErrConflict = errors.New("conflict")
	// ErrInsufficientStock is returned when on-hand stock cannot cover a withdrawal
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition is returned when a production run cannot move to the requested status
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrValidation marks input that failed validation
	ErrValidation = errors.New("validation failed")
)

// Invalidf builds a validation error that matches ErrValidation with errors.Is
func Invalidf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ValidationError carries a human readable validation message
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// Is reports whether target is ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine. Callers branch with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrNoActiveVehicle      = errors.New("no active vehicle")
	ErrClassificationFailed = errors.New("classification failed")
	ErrExtractionFailed     = errors.New("extraction failed")
	ErrServiceDegraded      = errors.New("external service degraded")
	ErrInvalidGoal          = errors.New("invalid goal")
	ErrInvalidTrip          = errors.New("invalid trip")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced by the analyze boundary

var (
	// ErrDataUnavailable indicates the market-data provider could not supply a snapshot
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrInvalidSnapshot indicates the snapshot cannot be evaluated (close <= 0, non-numeric values)
	ErrInvalidSnapshot = errors.New("invalid market snapshot")

	// ErrInvalidInput indicates invalid request parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an unexpected internal failure
	ErrInternal = errors.New("internal error")
)

// Provider-specific errors

var (
	// ErrRateLimitExceeded indicates the provider API rate limit was hit
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidSymbol indicates the provider does not know the symbol
	ErrInvalidSymbol = errors.New("invalid trading symbol")
)

// ValidationError represents a validation error with field-specific details.
// It unwraps to ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap lets errors.Is match ErrInvalidInput
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// Kind returns a short label for the taxonomy bucket err belongs to.
// Used as a metrics label and error tracker tag.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidSnapshot):
		return "invalid_snapshot"
	case errors.Is(err, ErrDataUnavailable):
		return "data_unavailable"
	default:
		return "internal"
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Join wraps err under sentinel so both match errors.Is
func Join(sentinel, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

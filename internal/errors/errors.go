// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrDataUnavailable      = errors.New("data unavailable")
	ErrInsufficientData     = errors.New("insufficient data")
	ErrComputationUndefined = errors.New("computation undefined")
	ErrInvalidInterval      = errors.New("invalid interval")
	ErrInvalidSymbol        = errors.New("invalid symbol")
	ErrConfigInvalid        = errors.New("invalid configuration")
)

// DataError represents a failure to obtain or use candle data for a symbol.
// Kind is one of the sentinel errors above, so errors.Is matches on it.
type DataError struct {
	Kind     error
	Symbol   string
	Interval string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v [%s %s]: %s: %v", e.Kind, e.Symbol, e.Interval, e.Message, e.Err)
	}
	return fmt.Sprintf("%v [%s %s]: %s", e.Kind, e.Symbol, e.Interval, e.Message)
}

// Is reports whether target is the error kind.
func (e *DataError) Is(target error) bool {
	return e.Kind == target
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(kind error, symbol, interval, message string, err error) *DataError {
	return &DataError{
		Kind:     kind,
		Symbol:   symbol,
		Interval: interval,
		Message:  message,
		Err:      err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError. The sentinel, if any, is
// kept in the chain.
func NewValidationError(field string, value interface{}, message string, sentinel error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     sentinel,
	}
}

// Error kind labels used in batch results and API responses.
const (
	KindDataUnavailable      = "data_unavailable"
	KindInsufficientData     = "insufficient_data"
	KindComputationUndefined = "computation_undefined"
	KindInvalidRequest       = "invalid_request"
	KindInternal             = "internal"
)

// Kind maps an error to its label.
func Kind(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDataUnavailable):
		return KindDataUnavailable
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, ErrComputationUndefined):
		return KindComputationUndefined
	case errors.As(err, &ve), errors.Is(err, ErrInvalidInterval), errors.Is(err, ErrInvalidSymbol):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

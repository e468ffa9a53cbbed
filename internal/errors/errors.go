// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInsufficientData     = errors.New("insufficient data")
	ErrIndicatorUnavailable = errors.New("indicator unavailable")
	ErrConfigInvalid        = errors.New("invalid configuration")
	ErrSymbolNotFound       = errors.New("symbol not found")
	ErrRateLimited          = errors.New("rate limited")
	ErrConnectionFailed     = errors.New("connection failed")
	ErrTimeout              = errors.New("operation timed out")
	ErrDataNotFound         = errors.New("data not found")
	ErrDatabaseError        = errors.New("database error")
	ErrCacheMiss            = errors.New("cache miss")
	ErrUnsupportedSource    = errors.New("unsupported source")
)

// InsufficientDataError is returned when a series has too few usable points
// to analyze at all.
type InsufficientDataError struct {
	Symbol string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("insufficient data: have %d points, need %d", e.Have, e.Need)
	}
	return fmt.Sprintf("insufficient data for %s: have %d points, need %d", e.Symbol, e.Have, e.Need)
}

func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(symbol string, have, need int) *InsufficientDataError {
	return &InsufficientDataError{
		Symbol: symbol,
		Have:   have,
		Need:   need,
	}
}

// ConfigurationError represents an invalid window, weight or option.
type ConfigurationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field string, value interface{}, message string) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a data-related error raised by a source adapter.
type DataError struct {
	Source  string
	Symbol  string
	Message string
	Err     error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.Source, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.Source, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(source, symbol, message string, err error) *DataError {
	return &DataError{
		Source:  source,
		Symbol:  symbol,
		Message: message,
		Err:     err,
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

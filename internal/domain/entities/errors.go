package entities

import "fmt"

// ConfigurationError indicates an invalid instrument or unit setting.
type ConfigurationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Message)
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(field string, value any, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Message: message}
}

// ParseError indicates an import produced no usable rows.
// Individual bad rows are dropped silently and never produce this error.
type ParseError struct {
	Source  string
	Line    int // last line examined, 0 if the input was empty
	Dropped int
	Message string
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse failed: %s (%d rows dropped)", e.Message, e.Dropped)
	}
	return fmt.Sprintf("parse failed for %s: %s (%d rows dropped)", e.Source, e.Message, e.Dropped)
}

// ShapeMismatchError indicates two paired sequences differ in length.
type ShapeMismatchError struct {
	What  string
	Left  int
	Right int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch in %s: %d != %d", e.What, e.Left, e.Right)
}

// NewShapeMismatchError creates a new shape mismatch error.
func NewShapeMismatchError(what string, left, right int) *ShapeMismatchError {
	return &ShapeMismatchError{What: what, Left: left, Right: right}
}

// InsufficientDataError indicates a computation received too few samples.
type InsufficientDataError struct {
	What string
	Got  int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: got %d points, need at least %d", e.What, e.Got, e.Need)
}

// NewInsufficientDataError creates a new insufficient data error.
func NewInsufficientDataError(what string, got, need int) *InsufficientDataError {
	return &InsufficientDataError{What: what, Got: got, Need: need}
}

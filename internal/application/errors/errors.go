// Package apperrors defines application-level error types.
package apperrors

import (
	"fmt"

	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// ValidationError indicates a workspace document or request failed validation.
type ValidationError struct {
	Field   string   // Field that failed validation
	Message string   // Error message
	Details []string // Additional details
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s (%d issues)", e.Field, e.Message, len(e.Details))
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, details ...string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: details,
	}
}

// NoDataError indicates an analysis was requested before any measured curve was loaded.
type NoDataError struct {
	Workspace string
}

func (e *NoDataError) Error() string {
	if e.Workspace == "" {
		return "no measured data: import a reflectivity curve before running the analysis"
	}
	return fmt.Sprintf("no measured data in workspace %q: import a reflectivity curve before running the analysis", e.Workspace)
}

// NewNoDataError creates a new no-data error.
func NewNoDataError(workspace string) *NoDataError {
	return &NoDataError{Workspace: workspace}
}

// RunInProgressError indicates a run was requested while another one is active.
type RunInProgressError struct {
	RunID values.RunID
	State values.RunState
}

func (e *RunInProgressError) Error() string {
	return fmt.Sprintf("analysis run %s is still %s", e.RunID, e.State)
}

// NewRunInProgressError creates a new run-in-progress error.
func NewRunInProgressError(id values.RunID, state values.RunState) *RunInProgressError {
	return &RunInProgressError{RunID: id, State: state}
}

// StageFailure indicates a pipeline stage could not produce a result.
type StageFailure struct {
	Cause error
	Stage values.RunState
}

func (e *StageFailure) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("%s stage failed", e.Stage)
}

func (e *StageFailure) Unwrap() error {
	return e.Cause
}

// NewStageFailure creates a new stage failure.
func NewStageFailure(stage values.RunState, cause error) *StageFailure {
	return &StageFailure{Stage: stage, Cause: cause}
}

// ConfigurationError indicates a system config or setup issue.
type ConfigurationError struct {
	Cause   error
	Aspect  string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error (%s): %s: %v", e.Aspect, e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Aspect, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(aspect, message string, cause error) *ConfigurationError {
	return &ConfigurationError{
		Aspect:  aspect,
		Message: message,
		Cause:   cause,
	}
}

// Package execution provides domain models for analysis runs and their results.
package execution

import (
	"time"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// AnalysisResult is the bundle published by one pipeline run.
// A published bundle is never mutated; each state change publishes a new one.
//
//nolint:revive // ST1003: "Result" alone lacks context in imports
type AnalysisResult struct {
	StartTime time.Time       `json:"start_time" yaml:"start_time"`
	EndTime   time.Time       `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	State     values.RunState `json:"state" yaml:"state"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`

	Measured       *entities.Curve           `json:"measured,omitempty" yaml:"measured,omitempty"`
	InferenceCurve *entities.Curve           `json:"inference_curve,omitempty" yaml:"inference_curve,omitempty"`
	FitCurve       *entities.Curve           `json:"fit_curve,omitempty" yaml:"fit_curve,omitempty"`
	Residual       *entities.Curve           `json:"residual,omitempty" yaml:"residual,omitempty"`
	FittedStack    []entities.MaterialLayer  `json:"fitted_stack,omitempty" yaml:"fitted_stack,omitempty"`
	Profile        *entities.DensityProfile  `json:"profile,omitempty" yaml:"profile,omitempty"`
	Spectrum       *entities.FourierSpectrum `json:"spectrum,omitempty" yaml:"spectrum,omitempty"`
	Metrics        *entities.FitMetrics      `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// FourierThickness is the dominant thickness of the spectrum, 0 if none was found.
	FourierThickness float64             `json:"fourier_thickness,omitempty" yaml:"fourier_thickness,omitempty"`
	Expectations     []ExpectationResult `json:"expectations,omitempty" yaml:"expectations,omitempty"`
	Evaluations      int                 `json:"evaluations,omitempty" yaml:"evaluations,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`
	RunID    values.RunID  `json:"run_id" yaml:"run_id"`

	err error
}

// ExpectationResult is the outcome of one expectation expression evaluated against a result.
type ExpectationResult struct {
	Expression string `json:"expression" yaml:"expression"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty"`
	Passed     bool   `json:"passed" yaml:"passed"`
}

// NewAnalysisResult starts a bundle for a run entering the inference stage.
func NewAnalysisResult(id values.RunID, start time.Time) *AnalysisResult {
	return &AnalysisResult{
		RunID:     id,
		StartTime: start,
		State:     values.RunStateInferring,
	}
}

// IdleResult is the bundle visible before any run.
func IdleResult() *AnalysisResult {
	return &AnalysisResult{State: values.RunStateIdle}
}

// Next returns a copy of r in the given state. Slices and pointers are shared,
// which is safe because published bundles are read-only.
func (r *AnalysisResult) Next(state values.RunState) *AnalysisResult {
	next := *r
	next.State = state
	return &next
}

// Fail returns a terminal copy of r with every derived artifact cleared.
func (r *AnalysisResult) Fail(err error, end time.Time) *AnalysisResult {
	return &AnalysisResult{
		RunID:          r.RunID,
		StartTime:      r.StartTime,
		EndTime:        end,
		Duration:       end.Sub(r.StartTime),
		State:          values.RunStateFailed,
		Error:          err.Error(),
		Measured:       r.Measured,
		InferenceCurve: r.InferenceCurve,
		err:            err,
	}
}

// Err returns the error that failed the run, or nil.
// It is only available on the bundle that recorded the failure, not on decoded copies.
func (r *AnalysisResult) Err() error {
	return r.err
}

// Finish returns a succeeded copy of r.
func (r *AnalysisResult) Finish(end time.Time) *AnalysisResult {
	next := r.Next(values.RunStateSucceeded)
	next.EndTime = end
	next.Duration = end.Sub(r.StartTime)
	return next
}

// IsComplete returns true if the bundle carries every derived artifact.
func (r *AnalysisResult) IsComplete() bool {
	return r.State == values.RunStateSucceeded &&
		r.FitCurve != nil && r.Residual != nil && r.Profile != nil &&
		r.Spectrum != nil && r.Metrics != nil && len(r.FittedStack) > 0
}

// ExpectationsPassed reports whether every evaluated expectation passed.
func (r *AnalysisResult) ExpectationsPassed() bool {
	return r.FailedExpectations() == 0
}

// FailedExpectations counts the expectations that did not pass.
func (r *AnalysisResult) FailedExpectations() int {
	failed := 0
	for _, e := range r.Expectations {
		if !e.Passed {
			failed++
		}
	}
	return failed
}

package values

import "fmt"

// RunState is the state of the analysis pipeline.
type RunState string

const (
	// RunStateIdle means no run has been started yet
	RunStateIdle RunState = "idle"
	// RunStateInferring means the inference stage is producing a candidate model
	RunStateInferring RunState = "inferring"
	// RunStateRefining means the refinement stage is fitting the candidate
	RunStateRefining RunState = "refining"
	// RunStateSucceeded means a result bundle has been published
	RunStateSucceeded RunState = "succeeded"
	// RunStateFailed means the last run aborted with an error
	RunStateFailed RunState = "failed"
)

// IsActive returns true while a run is in flight
func (s RunState) IsActive() bool {
	return s == RunStateInferring || s == RunStateRefining
}

// IsTerminal returns true for succeeded and failed
func (s RunState) IsTerminal() bool {
	return s == RunStateSucceeded || s == RunStateFailed
}

// CanStart returns true if a new run may begin from this state.
// Idle and both terminal states are re-triggerable.
func (s RunState) CanStart() bool {
	return s == RunStateIdle || s.IsTerminal()
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s RunState) CanTransitionTo(next RunState) bool {
	switch s {
	case RunStateIdle, RunStateSucceeded, RunStateFailed:
		return next == RunStateInferring
	case RunStateInferring:
		return next == RunStateRefining || next == RunStateFailed
	case RunStateRefining:
		return next == RunStateSucceeded || next == RunStateFailed
	default:
		return false
	}
}

// Validate returns an error if the state value is invalid
func (s RunState) Validate() error {
	switch s {
	case RunStateIdle, RunStateInferring, RunStateRefining, RunStateSucceeded, RunStateFailed:
		return nil
	default:
		return fmt.Errorf("invalid run state: %s", s)
	}
}

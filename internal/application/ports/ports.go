// Package ports defines interfaces for infrastructure dependencies.
// These are the "ports" in hexagonal architecture - abstractions that
// the application layer depends on but doesn't implement.
package ports

import (
	"context"
	"io"
	"time"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/execution"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// InferenceInput is the snapshot handed to the inference stage.
type InferenceInput struct {
	Measured entities.Curve
	Stack    *entities.LayerStack
}

// Candidate is a starting model produced by inference.
type Candidate struct {
	Stack      *entities.LayerStack
	Curve      entities.Curve
	Scale      float64
	Background float64
}

// InferenceStage produces an initial structural guess from the measured curve.
type InferenceStage interface {
	Infer(ctx context.Context, in InferenceInput) (*Candidate, error)
}

// RefinementInput is the snapshot handed to the refinement stage.
type RefinementInput struct {
	Measured  entities.Curve
	Candidate *Candidate
}

// Refinement is the refined model and its calculated curve, sampled at the measured q.
type Refinement struct {
	Stack       *entities.LayerStack
	Curve       entities.Curve
	Objective   float64
	Evaluations int
}

// RefinementStage fits the candidate model to the measured curve.
type RefinementStage interface {
	Refine(ctx context.Context, in RefinementInput) (*Refinement, error)
}

// MetricsRecorder observes pipeline runs.
type MetricsRecorder interface {
	RunStarted()
	StageCompleted(stage values.RunState, elapsed time.Duration)
	RunFinished(result *execution.AnalysisResult)
}

// ProfileCache stores synthesized density profiles by stack fingerprint.
type ProfileCache interface {
	Get(key string) (*entities.DensityProfile, bool)
	Add(key string, profile *entities.DensityProfile)
}

// OutputFormatter formats analysis results.
type OutputFormatter interface {
	Format(result *execution.AnalysisResult) error
}

// FormatterOptions tunes formatter output.
type FormatterOptions struct {
	Indent bool
	Color  bool
}

// OutputFormatterFactory creates formatters by name.
type OutputFormatterFactory interface {
	Create(format string, writer io.Writer, options FormatterOptions) (OutputFormatter, error)
	SupportedFormats() []string
}

// WorkspaceValidator checks a serialized workspace document before it is decoded.
type WorkspaceValidator interface {
	Validate(document []byte) error
}

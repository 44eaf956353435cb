// Package services contains application use cases: the analysis pipeline and
// the workspace session that owns the editable sample model.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/reglet-dev/xrrlab/internal/application/errors"
	"github.com/reglet-dev/xrrlab/internal/application/ports"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/execution"
	"github.com/reglet-dev/xrrlab/internal/domain/repositories"
	domainsvc "github.com/reglet-dev/xrrlab/internal/domain/services"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// RunInput is the basis of one run. The pipeline clones both values on Start,
// so later edits by the caller never reach an in-flight run.
type RunInput struct {
	Measured     *entities.MeasuredCurve
	Stack        *entities.LayerStack
	Expectations []string
	Workspace    string
}

// PipelineDeps are the collaborators of a Pipeline. Results and Metrics are optional.
type PipelineDeps struct {
	Inference    ports.InferenceStage
	Refinement   ports.RefinementStage
	Synthesizer  *domainsvc.DensitySynthesizer
	Fourier      *domainsvc.FourierAnalyzer
	Evaluator    *domainsvc.FitEvaluator
	Expectations *domainsvc.ExpectationEvaluator
	Results      repositories.AnalysisResultRepository
	Metrics      ports.MetricsRecorder
	Logger       *slog.Logger
}

// Pipeline runs inference and refinement on a background goroutine and publishes
// each state as an immutable AnalysisResult.
//
//	idle → inferring → refining → succeeded
//	            ↘           ↘
//	             failed ←────┘
//
// Succeeded and failed may start again. At most one run is in flight.
type Pipeline struct {
	deps    PipelineDeps
	logger  *slog.Logger
	now     func() time.Time
	current atomic.Pointer[execution.AnalysisResult]

	mu     sync.Mutex // guards starting and the fields below
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPipeline creates an idle pipeline.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Expectations == nil {
		deps.Expectations = domainsvc.NewExpectationEvaluator()
	}
	p := &Pipeline{deps: deps, logger: deps.Logger, now: time.Now}
	p.current.Store(execution.IdleResult())
	return p
}

// Result returns the most recently published bundle. It is never nil and must not be modified.
func (p *Pipeline) Result() *execution.AnalysisResult {
	return p.current.Load()
}

// State returns the current pipeline state.
func (p *Pipeline) State() values.RunState {
	return p.current.Load().State
}

// Start begins a run in the background and returns its ID.
// It fails with RunInProgressError while a run is active and with NoDataError
// if there is no measured curve; in both cases the state is left unchanged.
// Cancelling ctx cancels the run at its next stage boundary.
func (p *Pipeline) Start(ctx context.Context, in RunInput) (values.RunID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur := p.current.Load()
	if !cur.State.CanStart() {
		return values.RunID{}, apperrors.NewRunInProgressError(cur.RunID, cur.State)
	}
	if in.Measured == nil || in.Measured.IsEmpty() {
		return values.RunID{}, apperrors.NewNoDataError(in.Workspace)
	}
	if in.Stack == nil {
		return values.RunID{}, fmt.Errorf("run requires a layer stack")
	}

	snapshot := RunInput{
		Measured:     in.Measured.Clone(),
		Stack:        in.Stack.Clone(),
		Expectations: append([]string(nil), in.Expectations...),
		Workspace:    in.Workspace,
	}

	id := values.NewRunID()
	started := execution.NewAnalysisResult(id, p.now())
	started.Measured = &snapshot.Measured.Curve
	if !p.publish(started) {
		return values.RunID{}, fmt.Errorf("cannot start a run from state %s", cur.State)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	p.recordStart()
	p.logger.Info("analysis started", "run_id", id, "points", snapshot.Measured.Len(), "layers", snapshot.Stack.Len())

	go func() {
		defer close(done)
		defer cancel()
		p.run(runCtx, started, snapshot)
	}()
	return id, nil
}

// Wait blocks until the current run finishes or ctx is done, then returns the published
// bundle together with the run's error, if any.
func (p *Pipeline) Wait(ctx context.Context) (*execution.AnalysisResult, error) {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return p.Result(), ctx.Err()
		}
	}
	r := p.Result()
	return r, r.Err()
}

// Run starts a run and waits for it.
func (p *Pipeline) Run(ctx context.Context, in RunInput) (*execution.AnalysisResult, error) {
	if _, err := p.Start(ctx, in); err != nil {
		return p.Result(), err
	}
	return p.Wait(ctx)
}

// Cancel requests cancellation of the active run, if any.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pipeline) run(ctx context.Context, r *execution.AnalysisResult, in RunInput) {
	measured := in.Measured.Curve

	// inferring
	stageStart := p.now()
	if err := ctx.Err(); err != nil {
		p.fail(ctx, r, values.RunStateInferring, err)
		return
	}
	candidate, err := p.deps.Inference.Infer(ctx, ports.InferenceInput{Measured: measured, Stack: in.Stack})
	if err == nil && candidate == nil {
		err = errors.New("inference produced no candidate")
	}
	if err != nil {
		p.fail(ctx, r, values.RunStateInferring, err)
		return
	}
	p.recordStage(values.RunStateInferring, p.now().Sub(stageStart))

	inferenceCurve := candidate.Curve.Clone()
	r = r.Next(values.RunStateInferring)
	r.InferenceCurve = &inferenceCurve
	p.publish(r)

	// refining
	r = r.Next(values.RunStateRefining)
	p.publish(r)
	stageStart = p.now()
	if err := ctx.Err(); err != nil {
		p.fail(ctx, r, values.RunStateRefining, err)
		return
	}
	refined, err := p.deps.Refinement.Refine(ctx, ports.RefinementInput{Measured: measured, Candidate: candidate})
	if err == nil && refined == nil {
		err = errors.New("refinement produced no result")
	}
	if err != nil {
		p.fail(ctx, r, values.RunStateRefining, err)
		return
	}

	final, err := p.derive(ctx, r, measured, refined)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		p.fail(ctx, r, values.RunStateRefining, err)
		return
	}
	p.recordStage(values.RunStateRefining, p.now().Sub(stageStart))

	final.Expectations = p.deps.Expectations.Evaluate(final, in.Expectations)
	final = final.Finish(p.now())
	if !final.IsComplete() {
		p.fail(ctx, r, values.RunStateRefining, errors.New("refinement left the result incomplete"))
		return
	}
	p.publishTerminal(ctx, final)
	p.logger.Info("analysis succeeded",
		"run_id", final.RunID,
		"chi2", final.Metrics.Chi2,
		"fom", final.Metrics.FOM,
		"evaluations", final.Evaluations,
		"duration", final.Duration)
}

// derive computes the residual, density profile, spectrum and metrics of a refinement concurrently
// and assembles them into one unpublished bundle.
func (p *Pipeline) derive(ctx context.Context, r *execution.AnalysisResult, measured entities.Curve, refined *ports.Refinement) (*execution.AnalysisResult, error) {
	fit := refined.Curve.Clone()
	var (
		residual entities.Curve
		profile  *entities.DensityProfile
		spectrum *entities.FourierSpectrum
		metrics  entities.FitMetrics
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		residual, err = domainsvc.Residual(measured, fit)
		return err
	})
	g.Go(func() error {
		profile = p.deps.Synthesizer.Synthesize(refined.Stack)
		return nil
	})
	g.Go(func() error {
		var err error
		spectrum, err = p.deps.Fourier.Analyze(fit)
		return err
	})
	g.Go(func() error {
		var err error
		metrics, err = p.deps.Evaluator.EvaluateCurves(measured, fit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	final := r.Next(values.RunStateRefining)
	final.FitCurve = &fit
	final.Residual = &residual
	final.FittedStack = refined.Stack.Layers()
	final.Profile = profile
	final.Spectrum = spectrum
	final.Metrics = &metrics
	final.FourierThickness = domainsvc.DominantThickness(spectrum, minFourierThickness)
	final.Evaluations = refined.Evaluations
	return final, nil
}

// minFourierThickness skips the residual trend near zero thickness when picking the spectral peak.
const minFourierThickness = 10.0

func (p *Pipeline) fail(ctx context.Context, r *execution.AnalysisResult, stage values.RunState, cause error) {
	err := apperrors.NewStageFailure(stage, cause)
	failed := r.Fail(err, p.now())
	p.publishTerminal(ctx, failed)
	p.logger.Warn("analysis failed", "run_id", r.RunID, "stage", stage, "error", cause)
}

// publish makes r the current bundle if its state may follow the current one.
// Re-publishing the same state of the same run updates its artifacts.
func (p *Pipeline) publish(r *execution.AnalysisResult) bool {
	cur := p.current.Load()
	sameState := cur.RunID.Equals(r.RunID) && cur.State == r.State
	if !sameState && !cur.State.CanTransitionTo(r.State) {
		p.logger.Error("rejected pipeline transition", "run_id", r.RunID, "from", cur.State, "to", r.State)
		return false
	}
	p.current.Store(r)
	return true
}

// publishTerminal makes a finished bundle visible and records it.
func (p *Pipeline) publishTerminal(ctx context.Context, r *execution.AnalysisResult) {
	if !p.publish(r) {
		return
	}
	if p.deps.Metrics != nil {
		p.deps.Metrics.RunFinished(r)
	}
	if p.deps.Results != nil {
		if err := p.deps.Results.Save(context.WithoutCancel(ctx), r); err != nil {
			p.logger.Warn("failed to store analysis result", "run_id", r.RunID, "error", err)
		}
	}
}

func (p *Pipeline) recordStart() {
	if p.deps.Metrics != nil {
		p.deps.Metrics.RunStarted()
	}
}

func (p *Pipeline) recordStage(stage values.RunState, elapsed time.Duration) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.StageCompleted(stage, elapsed)
	}
	p.logger.Debug("stage completed", "stage", stage, "elapsed", elapsed)
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/reglet-dev/xrrlab/internal/application/ports"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	domainsvc "github.com/reglet-dev/xrrlab/internal/domain/services"
)

// divergedMisfit replaces non-finite objective values so the simplex moves away from them.
const divergedMisfit = 1e12

// convergeIterations is how many iterations the misfit may stall before the optimizer stops.
const convergeIterations = 60

// Refinement polishes a candidate with Nelder-Mead on the log-space misfit.
//
// Free parameters are every overlayer's thickness, density and roughness, the substrate's
// density and roughness, and the log10 intensity scale and background. Physical parameters
// are optimised relative to their starting value and mapped through |x|, so they never go
// negative.
type Refinement struct {
	model  domainsvc.ParrattModel
	cfg    Config
	logger *slog.Logger
}

// NewRefinement creates the refinement stage.
func NewRefinement(model domainsvc.ParrattModel, cfg Config, logger *slog.Logger) *Refinement {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refinement{model: model, cfg: cfg.normalized(), logger: logger}
}

// Refine runs the optimizer. Cancelling ctx aborts it between iterations.
func (e *Refinement) Refine(ctx context.Context, in ports.RefinementInput) (*ports.Refinement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Candidate == nil || in.Candidate.Stack == nil {
		return nil, errors.New("refinement requires a candidate stack")
	}
	if len(in.Measured.X) != len(in.Measured.Y) {
		return nil, entities.NewShapeMismatchError("measured curve", len(in.Measured.X), len(in.Measured.Y))
	}
	if in.Measured.IsEmpty() {
		return nil, entities.NewInsufficientDataError("refinement", 0, 1)
	}

	p := newParameterization(in.Candidate, in.Measured.Y)
	objective := func(x []float64) float64 {
		stack, scale, background := p.decode(x)
		calc := e.model.WithScale(scale, background).Reflectivity(stack, in.Measured.X)
		f := domainsvc.LogChi2(in.Measured.Y, calc)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return divergedMisfit
		}
		return f
	}

	problem := optimize.Problem{
		Func: objective,
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: e.cfg.MaxEvaluations,
		MajorIterations: e.cfg.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   e.cfg.Tolerance,
			Relative:   e.cfg.Tolerance,
			Iterations: convergeIterations,
		},
	}

	x0 := p.initial()
	f0 := objective(x0)
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("optimizer failed: %w", err)
	}
	if result == nil || math.IsNaN(result.F) || result.F >= divergedMisfit {
		return nil, errors.New("refinement diverged")
	}

	best := result.X
	if result.F > f0 {
		best = x0
	}
	stack, scale, background := p.decode(best)
	curve := e.model.WithScale(scale, background).Curve(stack, in.Measured.X)

	e.logger.Debug("refinement finished",
		"status", result.Status.String(),
		"evaluations", result.FuncEvaluations,
		"initial", f0,
		"final", result.F)

	return &ports.Refinement{
		Stack:       stack,
		Curve:       curve,
		Objective:   math.Min(result.F, f0),
		Evaluations: result.FuncEvaluations,
	}, nil
}

// parameterization maps the optimizer vector to a stack, scale and background.
// Physical parameters are stored relative to their starting magnitude.
type parameterization struct {
	layers []entities.MaterialLayer
	start  []float64
	units  []float64
	scale0 float64
	bg0    float64
}

func newParameterization(c *ports.Candidate, measured []float64) *parameterization {
	layers := c.Stack.Layers()
	p := &parameterization{layers: layers}
	for i, l := range layers {
		if i < len(layers)-1 {
			p.add(l.Thickness)
		}
		p.add(l.Density)
		p.add(l.Roughness)
	}

	scale := c.Scale
	if scale <= 0 {
		scale = 1
	}
	p.scale0 = math.Log10(scale)
	p.bg0 = initialBackground(measured)
	return p
}

// add registers a free parameter. Non-finite starting values start from zero.
func (p *parameterization) add(v float64) {
	v = math.Abs(v)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	u := v
	if u == 0 {
		u = 1
	}
	p.start = append(p.start, v)
	p.units = append(p.units, u)
}

// initialBackground starts two decades below the weakest positive intensity.
func initialBackground(measured []float64) float64 {
	positive := make([]float64, 0, len(measured))
	for _, v := range measured {
		if v > 0 {
			positive = append(positive, v)
		}
	}
	if len(positive) == 0 {
		return -12
	}
	return math.Log10(floats.Min(positive)) - 2
}

func (p *parameterization) initial() []float64 {
	n := len(p.units)
	x := make([]float64, n+2)
	for i := 0; i < n; i++ {
		x[i] = p.start[i] / p.units[i]
	}
	x[n] = p.scale0
	x[n+1] = p.bg0
	return x
}

func (p *parameterization) decode(x []float64) (*entities.LayerStack, float64, float64) {
	layers := make([]entities.MaterialLayer, len(p.layers))
	copy(layers, p.layers)

	k := 0
	next := func() float64 {
		v := math.Abs(x[k]) * p.units[k]
		k++
		return v
	}
	for i := range layers {
		if i < len(layers)-1 {
			layers[i].Thickness = next()
		}
		layers[i].Density = next()
		layers[i].Roughness = next()
	}

	stack, _ := entities.NewLayerStackFromLayers(layers)
	n := len(p.units)
	return stack, math.Pow(10, x[n]), math.Pow(10, x[n+1])
}

package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/reglet-dev/xrrlab/internal/application/ports"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	domainsvc "github.com/reglet-dev/xrrlab/internal/domain/services"
)

// minHintThickness ignores the low-thickness trend of the spectrum when reading the Fourier hint.
const minHintThickness = 10.0

// Inference proposes a starting model by scaling every overlayer thickness by a common
// factor and keeping the factor whose forward model best matches the measurement.
// The factor grid is augmented with the ratio of the Fourier thickness to the stack thickness.
type Inference struct {
	model   domainsvc.ParrattModel
	fourier *domainsvc.FourierAnalyzer
	cfg     Config
	logger  *slog.Logger
}

// NewInference creates the inference stage.
func NewInference(model domainsvc.ParrattModel, fourier *domainsvc.FourierAnalyzer, cfg Config, logger *slog.Logger) *Inference {
	if fourier == nil {
		fourier = domainsvc.NewFourierAnalyzer(domainsvc.DefaultFourierConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inference{model: model, fourier: fourier, cfg: cfg.normalized(), logger: logger}
}

type trial struct {
	factor    float64
	stack     *entities.LayerStack
	scale     float64
	objective float64
}

// Infer evaluates the factor grid concurrently and returns the best candidate.
func (e *Inference) Infer(ctx context.Context, in ports.InferenceInput) (*ports.Candidate, error) {
	if in.Stack == nil {
		return nil, errors.New("inference requires a layer stack")
	}
	if len(in.Measured.X) != len(in.Measured.Y) {
		return nil, entities.NewShapeMismatchError("measured curve", len(in.Measured.X), len(in.Measured.Y))
	}
	if n := positiveCount(in.Measured); n < domainsvc.MinFourierPoints {
		return nil, entities.NewInsufficientDataError("inference", n, domainsvc.MinFourierPoints)
	}

	factors := e.factors(in)
	trials := make([]trial, len(factors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, f := range factors {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			trials[i] = e.evaluate(in.Stack, in.Measured, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// first minimum wins, so ties keep the earlier (unscaled) factor
	best := trials[0]
	for _, t := range trials[1:] {
		if t.objective < best.objective {
			best = t
		}
	}
	if math.IsNaN(best.objective) || math.IsInf(best.objective, 0) {
		return nil, errors.New("no trial produced a finite misfit")
	}

	e.logger.Debug("inference search finished",
		"trials", len(trials),
		"factor", best.factor,
		"scale", best.scale,
		"objective", best.objective)

	return &ports.Candidate{
		Stack: best.stack,
		Curve: e.model.WithScale(best.scale, 0).Curve(best.stack, in.Measured.X),
		Scale: best.scale,
	}, nil
}

// factors returns 1, the Fourier hint if any, and a uniform grid over [ScaleMin, ScaleMax].
func (e *Inference) factors(in ports.InferenceInput) []float64 {
	factors := []float64{1}
	total := in.Stack.TotalThickness()
	if total <= 0 {
		return factors
	}

	if spectrum, err := e.fourier.Analyze(in.Measured); err == nil {
		if d := domainsvc.DominantThickness(spectrum, minHintThickness); d > 0 {
			factors = append(factors, d/total)
		}
	}

	step := (e.cfg.ScaleMax - e.cfg.ScaleMin) / float64(e.cfg.SearchPoints-1)
	for i := 0; i < e.cfg.SearchPoints; i++ {
		factors = append(factors, e.cfg.ScaleMin+float64(i)*step)
	}
	return factors
}

func (e *Inference) evaluate(stack *entities.LayerStack, measured entities.Curve, factor float64) trial {
	scaled := scaleThickness(stack, factor)
	calc := e.model.Reflectivity(scaled, measured.X)
	scale := fitScale(measured.Y, calc)
	for i := range calc {
		calc[i] *= scale
	}
	return trial{
		factor:    factor,
		stack:     scaled,
		scale:     scale,
		objective: domainsvc.LogChi2(measured.Y, calc),
	}
}

// scaleThickness multiplies every overlayer thickness by factor.
func scaleThickness(stack *entities.LayerStack, factor float64) *entities.LayerStack {
	layers := stack.Layers()
	for i := range layers[:len(layers)-1] {
		layers[i].Thickness *= factor
	}
	scaled, _ := entities.NewLayerStackFromLayers(layers)
	return scaled
}

// fitScale returns the intensity scale minimising the log misfit: 10^mean(log m − log c).
func fitScale(measured, calculated []float64) float64 {
	sum, n := 0.0, 0
	for i := range measured {
		if measured[i] <= 0 || calculated[i] <= 0 {
			continue
		}
		sum += math.Log10(measured[i]) - math.Log10(calculated[i])
		n++
	}
	if n == 0 {
		return 1
	}
	return math.Pow(10, sum/float64(n))
}

func positiveCount(c entities.Curve) int {
	n := 0
	for i := range c.X {
		if c.X[i] > 0 && c.Y[i] > 0 {
			n++
		}
	}
	return n
}

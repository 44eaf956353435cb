package services

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
)

// intensityFloor keeps logarithms of zero or negative intensities finite.
const intensityFloor = 1e-30

// FitConfig sets the error model used for χ².
type FitConfig struct {
	// RelativeError is the assumed fractional uncertainty of each measured point.
	RelativeError float64 `json:"relative_error" yaml:"relative_error" validate:"gt=0"`
	// AbsoluteFloor bounds the uncertainty from below so near-zero points stay finite.
	AbsoluteFloor float64 `json:"absolute_floor" yaml:"absolute_floor" validate:"gt=0"`
}

// DefaultFitConfig assumes 10% counting uncertainty.
func DefaultFitConfig() FitConfig {
	return FitConfig{RelativeError: 0.1, AbsoluteFloor: 1e-12}
}

// FitEvaluator computes goodness-of-fit metrics between paired curves.
type FitEvaluator struct {
	cfg FitConfig
}

// NewFitEvaluator creates an evaluator, filling non-positive fields from the defaults.
func NewFitEvaluator(cfg FitConfig) *FitEvaluator {
	def := DefaultFitConfig()
	if cfg.RelativeError <= 0 {
		cfg.RelativeError = def.RelativeError
	}
	if cfg.AbsoluteFloor <= 0 {
		cfg.AbsoluteFloor = def.AbsoluteFloor
	}
	return &FitEvaluator{cfg: cfg}
}

// Evaluate returns χ², figure of merit and mean absolute error of calculated against measured.
//
//	chi2 = mean(((m − c)/σ)²), σ = max(RelativeError·|m|, AbsoluteFloor)
//	mae  = mean(|m − c|)
//	fom  = 100 / (1 + mean(|log10 m − log10 c|))
func (e *FitEvaluator) Evaluate(measured, calculated []float64) (entities.FitMetrics, error) {
	if len(measured) != len(calculated) {
		return entities.FitMetrics{}, entities.NewShapeMismatchError("fit metrics", len(measured), len(calculated))
	}
	if len(measured) == 0 {
		return entities.FitMetrics{}, entities.NewInsufficientDataError("fit metrics", 0, 1)
	}

	weighted := make([]float64, len(measured))
	absolute := make([]float64, len(measured))
	logDiff := make([]float64, len(measured))
	for i, m := range measured {
		c := calculated[i]
		sigma := math.Max(e.cfg.RelativeError*math.Abs(m), e.cfg.AbsoluteFloor)
		r := (m - c) / sigma
		weighted[i] = r * r
		absolute[i] = math.Abs(m - c)
		logDiff[i] = math.Abs(log10Floor(m) - log10Floor(c))
	}

	return entities.FitMetrics{
		Chi2: stat.Mean(weighted, nil),
		MAE:  stat.Mean(absolute, nil),
		FOM:  100 / (1 + stat.Mean(logDiff, nil)),
	}, nil
}

// EvaluateCurves evaluates two curves sampled at the same q points.
func (e *FitEvaluator) EvaluateCurves(measured, calculated entities.Curve) (entities.FitMetrics, error) {
	return e.Evaluate(measured.Y, calculated.Y)
}

// Residual returns measured.y − calculated.y paired with measured.x.
func Residual(measured, calculated entities.Curve) (entities.Curve, error) {
	if measured.Len() != calculated.Len() {
		return entities.Curve{}, entities.NewShapeMismatchError("residual", measured.Len(), calculated.Len())
	}
	x := make([]float64, measured.Len())
	y := make([]float64, measured.Len())
	copy(x, measured.X)
	for i := range y {
		y[i] = measured.Y[i] - calculated.Y[i]
	}
	return entities.Curve{X: x, Y: y}, nil
}

// LogChi2 is the mean squared log10 residual, the objective minimised by refinement.
// Reflectivity spans many decades, so comparing logarithms weights every decade equally.
func LogChi2(measured, calculated []float64) float64 {
	sum := 0.0
	for i := range measured {
		d := log10Floor(measured[i]) - log10Floor(calculated[i])
		sum += d * d
	}
	return sum / float64(len(measured))
}

func log10Floor(v float64) float64 {
	return math.Log10(math.Max(v, intensityFloor))
}

package services

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
)

// MinFourierPoints is the shortest curve the analyzer accepts.
const MinFourierPoints = 8

// FourierConfig sets the thickness axis of a spectrum, in ångström.
type FourierConfig struct {
	MaxThickness  float64 `json:"max_thickness" yaml:"max_thickness" validate:"gt=0"`
	ThicknessStep float64 `json:"thickness_step" yaml:"thickness_step" validate:"gt=0"`
	// PadFactor multiplies the transform length to interpolate between bins.
	PadFactor int `json:"pad_factor" yaml:"pad_factor" validate:"gte=1,lte=64"`
}

// DefaultFourierConfig covers films up to 500 Å.
func DefaultFourierConfig() FourierConfig {
	return FourierConfig{MaxThickness: 500, ThicknessStep: 1, PadFactor: 8}
}

// FourierAnalyzer turns Kiessig fringes of a reflectivity curve into a thickness spectrum.
// The curve is Fresnel-normalised (R·q⁴), taken to log10 and linearly detrended, then
// resampled on a uniform q grid, Hann-windowed and transformed. A fringe of period Δq
// appears at thickness 2π/Δq.
type FourierAnalyzer struct {
	cfg FourierConfig
}

// NewFourierAnalyzer creates an analyzer, filling zero fields from the defaults.
func NewFourierAnalyzer(cfg FourierConfig) *FourierAnalyzer {
	def := DefaultFourierConfig()
	if cfg.MaxThickness <= 0 {
		cfg.MaxThickness = def.MaxThickness
	}
	if cfg.ThicknessStep <= 0 {
		cfg.ThicknessStep = def.ThicknessStep
	}
	if cfg.PadFactor < 1 {
		cfg.PadFactor = def.PadFactor
	}
	return &FourierAnalyzer{cfg: cfg}
}

// Analyze computes the amplitude spectrum of curve on [0, MaxThickness].
func (a *FourierAnalyzer) Analyze(curve entities.Curve) (*entities.FourierSpectrum, error) {
	if len(curve.X) != len(curve.Y) {
		return nil, entities.NewShapeMismatchError("fourier input", len(curve.X), len(curve.Y))
	}

	q, signal := fresnelLog(curve)
	if len(q) < MinFourierPoints {
		return nil, entities.NewInsufficientDataError("fourier analysis", len(q), MinFourierPoints)
	}
	span := q[len(q)-1] - q[0]
	if span <= 0 {
		return nil, entities.NewInsufficientDataError("fourier analysis (distinct q values)", 1, MinFourierPoints)
	}

	alpha, beta := stat.LinearRegression(q, signal, nil, false)
	for i := range signal {
		signal[i] -= alpha + beta*q[i]
	}

	n := len(q)
	dq := span / float64(n-1)
	nfft := nextPow2(n) * a.cfg.PadFactor
	seq := make([]float64, nfft)
	windowSum := 0.0
	for j := 0; j < n; j++ {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(j)/float64(n-1)))
		windowSum += w
		seq[j] = w * interpolate(q, signal, q[0]+float64(j)*dq)
	}

	coeffs := fourier.NewFFT(nfft).Coefficients(nil, seq)
	binThickness := 2 * math.Pi / (float64(nfft) * dq)
	mags := make([]float64, len(coeffs))
	for k, c := range coeffs {
		mags[k] = 2 * math.Hypot(real(c), imag(c)) / windowSum
	}

	steps := int(math.Floor(a.cfg.MaxThickness/a.cfg.ThicknessStep + 1e-9))
	spectrum := &entities.FourierSpectrum{
		Freq: make([]float64, steps+1),
		Amp:  make([]float64, steps+1),
	}
	for i := range spectrum.Freq {
		d := float64(i) * a.cfg.ThicknessStep
		spectrum.Freq[i] = d
		pos := d / binThickness
		k := int(pos)
		if k+1 >= len(mags) {
			continue
		}
		frac := pos - float64(k)
		spectrum.Amp[i] = mags[k]*(1-frac) + mags[k+1]*frac
	}
	return spectrum, nil
}

// DominantThickness returns the strongest spectral thickness above minThickness, or 0.
func DominantThickness(s *entities.FourierSpectrum, minThickness float64) float64 {
	d, _, ok := s.Peak(minThickness)
	if !ok {
		return 0
	}
	return d
}

// fresnelLog returns the q-sorted points with q > 0 and their log10(R·q⁴).
func fresnelLog(curve entities.Curve) (q, signal []float64) {
	idx := make([]int, 0, curve.Len())
	for i := range curve.X {
		if curve.X[i] > 0 && isFinite(curve.X[i]) && isFinite(curve.Y[i]) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return curve.X[idx[a]] < curve.X[idx[b]] })

	q = make([]float64, len(idx))
	signal = make([]float64, len(idx))
	for j, i := range idx {
		x := curve.X[i]
		q[j] = x
		signal[j] = math.Log10(math.Max(curve.Y[i], intensityFloor) * x * x * x * x)
	}
	return q, signal
}

// interpolate evaluates the piecewise-linear function (xs, ys) at x; xs is ascending.
func interpolate(xs, ys []float64, x float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	last := len(xs) - 1
	if x >= xs[last] {
		return ys[last]
	}
	i := sort.SearchFloat64s(xs, x)
	x0, x1 := xs[i-1], xs[i]
	if x1 == x0 {
		return ys[i]
	}
	t := (x - x0) / (x1 - x0)
	return ys[i-1]*(1-t) + ys[i]*t
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

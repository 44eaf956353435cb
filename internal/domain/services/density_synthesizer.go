package services

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
)

// DepthGrid sets the sampling of a density profile, in ångström.
type DepthGrid struct {
	MarginAbove float64 `json:"margin_above" yaml:"margin_above" validate:"gte=0"`
	MarginBelow float64 `json:"margin_below" yaml:"margin_below" validate:"gte=0"`
	Step        float64 `json:"step" yaml:"step" validate:"gt=0"`
}

// DefaultDepthGrid shows 20 Å of roughness above the surface and 50 Å into the substrate.
func DefaultDepthGrid() DepthGrid {
	return DepthGrid{MarginAbove: 20, MarginBelow: 50, Step: 0.5}
}

// DensitySynthesizer turns a layer stack into a depth profile in which every
// interface is an error-function transition of width set by its roughness.
type DensitySynthesizer struct {
	grid DepthGrid
}

// NewDensitySynthesizer creates a synthesizer. A non-positive step falls back to the default grid.
func NewDensitySynthesizer(grid DepthGrid) *DensitySynthesizer {
	if grid.Step <= 0 {
		grid = DefaultDepthGrid()
	}
	return &DensitySynthesizer{grid: grid}
}

// Grid returns the sampling configuration.
func (s *DensitySynthesizer) Grid() DepthGrid {
	return s.grid
}

// Synthesize samples the stack from -MarginAbove to the total overlayer thickness plus MarginBelow.
func (s *DensitySynthesizer) Synthesize(stack *entities.LayerStack) *entities.DensityProfile {
	zMax := stack.TotalThickness() + s.grid.MarginBelow
	return s.SynthesizeRange(stack, -s.grid.MarginAbove, zMax)
}

// SynthesizeRange samples the stack over [zMin, zMax] at the configured step.
func (s *DensitySynthesizer) SynthesizeRange(stack *entities.LayerStack, zMin, zMax float64) *entities.DensityProfile {
	layers := stack.Layers()
	tops := InterfacePositions(stack)
	z := depthSamples(zMin, zMax, s.grid.Step)

	profile := &entities.DensityProfile{
		Z:          z,
		Rho:        make([]float64, len(z)),
		Layers:     make([]entities.LayerDensity, len(layers)),
		Interfaces: tops,
	}

	last := len(layers) - 1
	for i, layer := range layers {
		rho := make([]float64, len(z))
		for k, depth := range z {
			if i == last {
				rho[k] = layer.Density * normalCDF(depth, tops[i], layer.EffectiveRoughness())
			} else {
				// erf form of ρ·(Φ_top − Φ_bottom); overshoot from overlapping tails is floored, not renormalised
				top := erfStep(depth, tops[i], layer.EffectiveRoughness())
				bottom := erfStep(depth, tops[i+1], layers[i+1].EffectiveRoughness())
				rho[k] = math.Max(0, -(layer.Density/2)*(bottom-top))
			}
			profile.Rho[k] += rho[k]
		}
		profile.Layers[i] = entities.LayerDensity{Name: layer.Material, Rho: rho}
	}
	return profile
}

// Fingerprint identifies the profile Synthesize would produce for stack.
// Layer IDs are excluded: two stacks with identical physics share a profile.
func (s *DensitySynthesizer) Fingerprint(stack *entities.LayerStack) string {
	h := sha256.New()
	var buf [8]byte
	write := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	write(s.grid.MarginAbove)
	write(s.grid.MarginBelow)
	write(s.grid.Step)
	for _, l := range stack.Layers() {
		h.Write([]byte(l.Material))
		h.Write([]byte{0})
		write(l.Thickness)
		write(l.Density)
		write(l.Roughness)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// InterfacePositions returns the depth of the top interface of every layer.
// The first is 0; non-positive thicknesses contribute zero width.
func InterfacePositions(stack *entities.LayerStack) []float64 {
	layers := stack.Layers()
	tops := make([]float64, len(layers))
	for i := 1; i < len(layers); i++ {
		tops[i] = tops[i-1] + layers[i-1].EffectiveThickness()
	}
	return tops
}

// erfStep is erf((z − z0)/(σ√2)), degenerating to ±1 for σ = 0.
func erfStep(z, z0, sigma float64) float64 {
	if sigma == 0 {
		if z >= z0 {
			return 1
		}
		return -1
	}
	return math.Erf((z - z0) / (sigma * math.Sqrt2))
}

// normalCDF is Φ((z − z0)/σ), a Heaviside step for σ = 0.
func normalCDF(z, z0, sigma float64) float64 {
	return 0.5 * (1 + erfStep(z, z0, sigma))
}

// MaxDepthSamples bounds the length of a profile. Wider ranges are sampled more coarsely.
const MaxDepthSamples = 200_000

func depthSamples(zMin, zMax, step float64) []float64 {
	if zMax < zMin {
		zMin, zMax = zMax, zMin
	}
	span := zMax - zMin
	if !isFinite(zMin) || !isFinite(span) {
		return []float64{0}
	}
	n := MaxDepthSamples
	if s := math.Floor(span/step + 1e-9); s < MaxDepthSamples-1 {
		n = int(s) + 1
	} else {
		step = span / float64(MaxDepthSamples-1)
	}
	z := make([]float64, n)
	for k := range z {
		z[k] = zMin + float64(k)*step
	}
	return z
}

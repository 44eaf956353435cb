package entities

// LayerDensity is one layer's contribution to a density profile.
type LayerDensity struct {
	Name string    `json:"name" yaml:"name"`
	Rho  []float64 `json:"rho" yaml:"rho"`
}

// DensityProfile is a depth-resolved electron density profile (EDP).
// Rho is the sample-wise sum of every Layers[i].Rho.
type DensityProfile struct {
	Z          []float64      `json:"z" yaml:"z"`
	Rho        []float64      `json:"rho" yaml:"rho"`
	Layers     []LayerDensity `json:"layers" yaml:"layers"`
	Interfaces []float64      `json:"interfaces" yaml:"interfaces"`
}

// Len returns the number of depth samples
func (p *DensityProfile) Len() int {
	return len(p.Z)
}

// At returns the total density nearest to depth z.
func (p *DensityProfile) At(z float64) float64 {
	if len(p.Z) == 0 {
		return 0
	}
	best := 0
	for i := range p.Z {
		if abs(p.Z[i]-z) < abs(p.Z[best]-z) {
			best = i
		}
	}
	return p.Rho[best]
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Clone returns an independent deep copy.
func (p *DensityProfile) Clone() *DensityProfile {
	if p == nil {
		return nil
	}
	out := &DensityProfile{
		Z:          append([]float64(nil), p.Z...),
		Rho:        append([]float64(nil), p.Rho...),
		Interfaces: append([]float64(nil), p.Interfaces...),
		Layers:     make([]LayerDensity, len(p.Layers)),
	}
	for i, l := range p.Layers {
		out.Layers[i] = LayerDensity{Name: l.Name, Rho: append([]float64(nil), l.Rho...)}
	}
	return out
}

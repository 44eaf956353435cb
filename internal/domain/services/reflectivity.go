package services

import (
	"math"
	"math/cmplx"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
)

// SLDPerDensity converts a mass density in g/cm³ to an X-ray scattering length density
// in Å⁻², assuming Z/A ≈ 0.5: 0.5 · N_A · 10⁻²⁴ · r_e.
const SLDPerDensity = 8.48e-6

// ParrattModel computes specular reflectivity of a layer stack with the Parratt
// recursion and Névot–Croce interface roughness. The ambient medium is vacuum.
type ParrattModel struct {
	SLDPerDensity   float64
	AbsorptionRatio float64 // β/δ, the imaginary part of the SLD relative to the real part
	Scale           float64
	Background      float64
}

// NewParrattModel returns a model with unit scale and no background.
func NewParrattModel() ParrattModel {
	return ParrattModel{
		SLDPerDensity:   SLDPerDensity,
		AbsorptionRatio: 0.01,
		Scale:           1,
	}
}

// WithScale returns a copy of the model with the given intensity scale and background.
func (m ParrattModel) WithScale(scale, background float64) ParrattModel {
	m.Scale = scale
	m.Background = background
	return m
}

// CriticalQ is the total-reflection edge q_c = 4√(π·SLD) of a material of the given density.
func (m ParrattModel) CriticalQ(density float64) float64 {
	return 4 * math.Sqrt(math.Pi*m.SLDPerDensity*math.Max(density, 0))
}

// Curve evaluates the model at every q.
func (m ParrattModel) Curve(stack *entities.LayerStack, q []float64) entities.Curve {
	x := make([]float64, len(q))
	copy(x, q)
	return entities.Curve{X: x, Y: m.Reflectivity(stack, q)}
}

// Reflectivity returns scale·|r(q)|² + background for every q.
func (m ParrattModel) Reflectivity(stack *entities.LayerStack, q []float64) []float64 {
	layers := stack.Layers()
	media := len(layers) + 1 // vacuum, overlayers, substrate

	sld := make([]complex128, media)
	sigma := make([]float64, media)
	thick := make([]float64, media)
	for i, l := range layers {
		re := m.SLDPerDensity * l.Density
		sld[i+1] = complex(re, -m.AbsorptionRatio*math.Abs(re))
		sigma[i+1] = l.EffectiveRoughness()
		thick[i+1] = l.EffectiveThickness()
	}

	out := make([]float64, len(q))
	kz := make([]complex128, media)
	for n, qv := range q {
		k0 := complex(qv/2, 0)
		for j := range kz {
			kz[j] = cmplx.Sqrt(k0*k0 - complex(4*math.Pi, 0)*(sld[j]-sld[0]))
			if imag(kz[j]) < 0 {
				kz[j] = -kz[j]
			}
		}

		x := complex(0, 0)
		for j := media - 2; j >= 0; j-- {
			sum := kz[j] + kz[j+1]
			var r complex128
			if sum != 0 {
				r = (kz[j] - kz[j+1]) / sum
			}
			if s := sigma[j+1]; s > 0 {
				r *= cmplx.Exp(-2 * kz[j] * kz[j+1] * complex(s*s, 0))
			}
			phase := cmplx.Exp(complex(0, 2) * kz[j+1] * complex(thick[j+1], 0))
			x = (r + x*phase) / (1 + r*x*phase)
		}

		refl := real(x)*real(x) + imag(x)*imag(x)
		if math.IsNaN(refl) || math.IsInf(refl, 0) {
			refl = 1
		}
		out[n] = m.Scale*refl + m.Background
	}
	return out
}

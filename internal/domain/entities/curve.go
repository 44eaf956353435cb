package entities

import (
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// Curve is a reflectivity curve: intensity against momentum transfer q in Å⁻¹.
type Curve struct {
	X []float64 `json:"x" yaml:"x"`
	Y []float64 `json:"y" yaml:"y"`
}

// Len returns the number of samples
func (c Curve) Len() int {
	return len(c.X)
}

// IsEmpty returns true if the curve has no samples
func (c Curve) IsEmpty() bool {
	return len(c.X) == 0
}

// Clone returns a deep copy
func (c Curve) Clone() Curve {
	return Curve{X: cloneFloats(c.X), Y: cloneFloats(c.Y)}
}

// MeasuredCurve is an imported curve converted to q, keeping the raw X values
// so it can be re-converted when the unit or wavelength changes.
type MeasuredCurve struct {
	Curve
	OriginalX []float64       `json:"original_x" yaml:"original_x"`
	Unit      values.AxisUnit `json:"unit" yaml:"unit"`
}

// Validate checks the equal-length invariant.
func (m *MeasuredCurve) Validate() error {
	if len(m.X) != len(m.Y) {
		return NewShapeMismatchError("measured curve x/y", len(m.X), len(m.Y))
	}
	if len(m.X) != len(m.OriginalX) {
		return NewShapeMismatchError("measured curve x/original_x", len(m.X), len(m.OriginalX))
	}
	return nil
}

// Clone returns a deep copy
func (m *MeasuredCurve) Clone() *MeasuredCurve {
	if m == nil {
		return nil
	}
	return &MeasuredCurve{
		Curve:     m.Curve.Clone(),
		OriginalX: cloneFloats(m.OriginalX),
		Unit:      m.Unit,
	}
}

func cloneFloats(in []float64) []float64 {
	if in == nil {
		return nil
	}
	out := make([]float64, len(in))
	copy(out, in)
	return out
}

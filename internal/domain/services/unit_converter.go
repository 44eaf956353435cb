// Package services contains domain services for reflectivity analysis:
// unit conversion, density profile synthesis, spectral analysis and fit metrics.
// These services are stateless apart from their configuration and are safe
// for concurrent use.
package services

import (
	"math"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// UnitConverter maps imported X columns to momentum transfer q in Å⁻¹.
type UnitConverter struct{}

// NewUnitConverter creates a unit converter.
func NewUnitConverter() *UnitConverter {
	return &UnitConverter{}
}

// Convert converts rawX from unit to q and pairs it with an unchanged copy of rawY.
// The caller keeps rawX for later re-conversion.
func (c *UnitConverter) Convert(rawX, rawY []float64, unit values.AxisUnit, wavelength values.Wavelength) (entities.Curve, error) {
	if len(rawX) != len(rawY) {
		return entities.Curve{}, entities.NewShapeMismatchError("raw columns", len(rawX), len(rawY))
	}
	if err := c.check(unit, wavelength); err != nil {
		return entities.Curve{}, err
	}

	x := make([]float64, len(rawX))
	for i, v := range rawX {
		x[i] = toQ(v, unit, wavelength.Angstrom())
	}
	y := make([]float64, len(rawY))
	copy(y, rawY)
	return entities.Curve{X: x, Y: y}, nil
}

// ConvertMeasured converts raw columns into a measured curve that retains rawX.
func (c *UnitConverter) ConvertMeasured(rawX, rawY []float64, unit values.AxisUnit, wavelength values.Wavelength) (*entities.MeasuredCurve, error) {
	curve, err := c.Convert(rawX, rawY, unit, wavelength)
	if err != nil {
		return nil, err
	}
	original := make([]float64, len(rawX))
	copy(original, rawX)
	return &entities.MeasuredCurve{Curve: curve, OriginalX: original, Unit: unit}, nil
}

// ToQ converts a single value.
func (c *UnitConverter) ToQ(v float64, unit values.AxisUnit, wavelength values.Wavelength) (float64, error) {
	if err := c.check(unit, wavelength); err != nil {
		return 0, err
	}
	return toQ(v, unit, wavelength.Angstrom()), nil
}

// FromQ is the inverse of ToQ. Angles are only defined up to the total-reflection
// limit q = 4π/λ; larger q yields NaN.
func (c *UnitConverter) FromQ(q float64, unit values.AxisUnit, wavelength values.Wavelength) (float64, error) {
	if err := c.check(unit, wavelength); err != nil {
		return 0, err
	}
	lambda := wavelength.Angstrom()
	switch unit {
	case values.AxisTwoTheta:
		return 2 * radToDeg(math.Asin(q*lambda/(4*math.Pi))), nil
	case values.AxisTheta:
		return radToDeg(math.Asin(q * lambda / (4 * math.Pi))), nil
	case values.AxisQNanometer:
		return q * 10, nil
	default:
		return q, nil
	}
}

func (c *UnitConverter) check(unit values.AxisUnit, wavelength values.Wavelength) error {
	if err := unit.Validate(); err != nil {
		return entities.NewConfigurationError("unit", string(unit), err.Error())
	}
	if err := wavelength.Validate(); err != nil {
		return entities.NewConfigurationError("wavelength", float64(wavelength), err.Error())
	}
	return nil
}

func toQ(v float64, unit values.AxisUnit, lambda float64) float64 {
	switch unit {
	case values.AxisTwoTheta:
		return 4 * math.Pi / lambda * math.Sin(degToRad(v/2))
	case values.AxisTheta:
		return 4 * math.Pi / lambda * math.Sin(degToRad(v))
	case values.AxisQNanometer:
		return v / 10
	default:
		return v
	}
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }

func radToDeg(r float64) float64 { return r * 180 / math.Pi }

package values

import (
	"fmt"
	"math"
)

// CuKAlpha1 is the Cu Kα1 line, the default laboratory source.
const CuKAlpha1 Wavelength = 1.5406

// Wavelength is an X-ray wavelength in ångström.
type Wavelength float64

// NewWavelength validates and wraps a wavelength value.
func NewWavelength(v float64) (Wavelength, error) {
	w := Wavelength(v)
	if err := w.Validate(); err != nil {
		return 0, err
	}
	return w, nil
}

// Validate returns an error unless the wavelength is finite and positive
func (w Wavelength) Validate() error {
	v := float64(w)
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("wavelength must be a positive finite value, got %v", v)
	}
	return nil
}

// Angstrom returns the raw value in ångström
func (w Wavelength) Angstrom() float64 {
	return float64(w)
}

// String formats the wavelength with its unit
func (w Wavelength) String() string {
	return fmt.Sprintf("%.4f Å", float64(w))
}

package values

import (
	"fmt"
	"strings"
)

// AxisUnit is the unit tag of an imported X column.
type AxisUnit string

const (
	// AxisTwoTheta is the diffractometer 2θ angle in degrees
	AxisTwoTheta AxisUnit = "2theta"
	// AxisTheta is the incidence angle θ in degrees
	AxisTheta AxisUnit = "theta"
	// AxisQNanometer is momentum transfer in nm⁻¹
	AxisQNanometer AxisUnit = "q_nm"
	// AxisQAngstrom is momentum transfer in Å⁻¹ (canonical)
	AxisQAngstrom AxisUnit = "q_a"
)

// qGuessThreshold separates q-like from angle-like X columns when guessing.
const qGuessThreshold = 2.5

// AxisUnits lists every supported unit in display order.
func AxisUnits() []AxisUnit {
	return []AxisUnit{AxisTwoTheta, AxisTheta, AxisQNanometer, AxisQAngstrom}
}

// ParseAxisUnit parses a unit tag. Common aliases such as "2θ" and "q" are accepted.
func ParseAxisUnit(s string) (AxisUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "2theta", "2θ", "two_theta", "tth":
		return AxisTwoTheta, nil
	case "theta", "θ", "omega":
		return AxisTheta, nil
	case "q_nm", "qnm", "nm-1":
		return AxisQNanometer, nil
	case "q_a", "q", "qa", "a-1":
		return AxisQAngstrom, nil
	default:
		return "", fmt.Errorf("invalid axis unit: %q (supported: %v)", s, AxisUnits())
	}
}

// GuessAxisUnit suggests a unit from the largest X value of an import.
// Reflectivity rarely extends past q = 2.5 Å⁻¹, while angle scans almost always do in degrees.
func GuessAxisUnit(x []float64) AxisUnit {
	if len(x) == 0 {
		return AxisTwoTheta
	}
	maxX := x[0]
	for _, v := range x[1:] {
		if v > maxX {
			maxX = v
		}
	}
	if maxX < qGuessThreshold {
		return AxisQAngstrom
	}
	return AxisTwoTheta
}

// IsAngle reports whether the unit is an angle that needs the wavelength to convert.
func (u AxisUnit) IsAngle() bool {
	return u == AxisTwoTheta || u == AxisTheta
}

// Label returns a human readable axis label.
func (u AxisUnit) Label() string {
	switch u {
	case AxisTwoTheta:
		return "2θ (deg)"
	case AxisTheta:
		return "θ (deg)"
	case AxisQNanometer:
		return "q (nm⁻¹)"
	case AxisQAngstrom:
		return "q (Å⁻¹)"
	default:
		return string(u)
	}
}

// Validate returns an error if the unit is not supported
func (u AxisUnit) Validate() error {
	switch u {
	case AxisTwoTheta, AxisTheta, AxisQNanometer, AxisQAngstrom:
		return nil
	default:
		return fmt.Errorf("invalid axis unit: %s", u)
	}
}

// String returns the unit tag
func (u AxisUnit) String() string {
	return string(u)
}

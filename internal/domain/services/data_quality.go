package services

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
)

// DataQuality summarises an imported curve.
type DataQuality struct {
	Points       int     `json:"points" yaml:"points"`
	Dropped      int     `json:"dropped" yaml:"dropped"`
	QMin         float64 `json:"q_min" yaml:"q_min"`
	QMax         float64 `json:"q_max" yaml:"q_max"`
	DynamicRange float64 `json:"dynamic_range_decades" yaml:"dynamic_range_decades"`
}

// AssessQuality computes the q range and the intensity dynamic range in decades.
// Non-positive intensities are ignored for the dynamic range.
func AssessQuality(curve entities.Curve, dropped int) DataQuality {
	q := DataQuality{Points: curve.Len(), Dropped: dropped}
	if curve.IsEmpty() {
		return q
	}
	q.QMin = floats.Min(curve.X)
	q.QMax = floats.Max(curve.X)

	positive := make([]float64, 0, len(curve.Y))
	for _, v := range curve.Y {
		if v > 0 {
			positive = append(positive, v)
		}
	}
	if len(positive) > 0 {
		q.DynamicRange = math.Log10(floats.Max(positive)) - math.Log10(floats.Min(positive))
	}
	return q
}

package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

func TestUnitConverter_TwoTheta(t *testing.T) {
	c := NewUnitConverter()

	curve, err := c.Convert([]float64{40}, []float64{1.5}, values.AxisTwoTheta, values.CuKAlpha1)
	require.NoError(t, err)

	want := 4 * math.Pi / 1.5406 * math.Sin(20*math.Pi/180)
	assert.InDelta(t, want, curve.X[0], 1e-12)
	assert.InDelta(t, 2.79, curve.X[0], 0.01)
	assert.Equal(t, []float64{1.5}, curve.Y)
}

func TestUnitConverter_Units(t *testing.T) {
	c := NewUnitConverter()

	tests := []struct {
		unit values.AxisUnit
		in   float64
		want float64
	}{
		{values.AxisTheta, 20, 4 * math.Pi / 1.5406 * math.Sin(20*math.Pi/180)},
		{values.AxisQNanometer, 2.5, 0.25},
		{values.AxisQAngstrom, 0.31, 0.31},
	}

	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			got, err := c.ToQ(tt.in, tt.unit, values.CuKAlpha1)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestUnitConverter_RoundTrip(t *testing.T) {
	c := NewUnitConverter()
	raw := []float64{0.1, 0.5, 1.2, 3.3, 8, 15.75}

	for _, unit := range values.AxisUnits() {
		t.Run(string(unit), func(t *testing.T) {
			curve, err := c.Convert(raw, make([]float64, len(raw)), unit, values.CuKAlpha1)
			require.NoError(t, err)

			for i, q := range curve.X {
				back, err := c.FromQ(q, unit, values.CuKAlpha1)
				require.NoError(t, err)
				assert.InDelta(t, raw[i], back, 1e-9)

				again, err := c.ToQ(back, unit, values.CuKAlpha1)
				require.NoError(t, err)
				assert.InDelta(t, q, again, 1e-12)
			}
		})
	}
}

func TestUnitConverter_ConfigurationErrors(t *testing.T) {
	c := NewUnitConverter()

	for _, w := range []values.Wavelength{0, -1.54} {
		_, err := c.Convert([]float64{1}, []float64{1}, values.AxisTwoTheta, w)
		var cfgErr *entities.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "wavelength", cfgErr.Field)
	}

	_, err := c.Convert([]float64{1}, []float64{1}, values.AxisUnit("mrad"), values.CuKAlpha1)
	var cfgErr *entities.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "unit", cfgErr.Field)
}

func TestUnitConverter_ShapeMismatch(t *testing.T) {
	_, err := NewUnitConverter().Convert([]float64{1, 2}, []float64{1}, values.AxisQAngstrom, values.CuKAlpha1)
	var shapeErr *entities.ShapeMismatchError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestUnitConverter_ConvertMeasured_KeepsOriginal(t *testing.T) {
	raw := []float64{1, 2, 3}
	m, err := NewUnitConverter().ConvertMeasured(raw, []float64{1, 0.1, 0.01}, values.AxisTwoTheta, values.CuKAlpha1)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	raw[0] = 99
	assert.Equal(t, 1.0, m.OriginalX[0])
	assert.Equal(t, values.AxisTwoTheta, m.Unit)
}

package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
)

func TestParrattModel_FresnelSubstrate(t *testing.T) {
	m := NewParrattModel()
	stack := entities.NewLayerStack(entities.NewMaterialLayer("Si", 0, 2.33, 0))
	qc := m.CriticalQ(2.33)
	assert.InDelta(t, 0.0315, qc, 0.001)

	r := m.Reflectivity(stack, []float64{0.5 * qc, 6 * qc})

	assert.Greater(t, r[0], 0.9, "total external reflection below the critical edge")
	asymptote := math.Pow(qc/(2*6*qc), 4)
	assert.InEpsilon(t, asymptote, r[1], 0.2)
}

func TestParrattModel_RoughnessDampsReflectivity(t *testing.T) {
	m := NewParrattModel()
	q := []float64{0.1, 0.2, 0.3}
	smooth := m.Reflectivity(entities.NewLayerStack(entities.NewMaterialLayer("Si", 0, 2.33, 0)), q)
	rough := m.Reflectivity(entities.NewLayerStack(entities.NewMaterialLayer("Si", 0, 2.33, 5)), q)

	for i := range q {
		assert.Less(t, rough[i], smooth[i])
	}
	// Névot–Croce reduces to the Debye–Waller factor far above the edge.
	assert.InEpsilon(t, math.Exp(-0.3*0.3*25), rough[2]/smooth[2], 0.05)
}

func TestParrattModel_ScaleAndBackground(t *testing.T) {
	stack := entities.DefaultLayerStack()
	q := []float64{0.05, 0.1}
	base := NewParrattModel().Reflectivity(stack, q)
	scaled := NewParrattModel().WithScale(2, 1e-7).Reflectivity(stack, q)

	for i := range q {
		assert.InDelta(t, 2*base[i]+1e-7, scaled[i], 1e-15)
	}
}

func TestParrattModel_FilmFringesMatchThickness(t *testing.T) {
	stack := entities.NewLayerStack(
		entities.NewMaterialLayer("Si", 0, 2.33, 2),
		entities.NewMaterialLayer("Au", 80, 19.32, 2),
	)
	q := make([]float64, 400)
	for i := range q {
		q[i] = 0.1 + 0.5*float64(i)/float64(len(q)-1)
	}
	curve := NewParrattModel().Curve(stack, q)
	for _, v := range curve.Y {
		require.False(t, math.IsNaN(v))
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0+1e-9)
	}

	spec, err := NewFourierAnalyzer(DefaultFourierConfig()).Analyze(curve)
	require.NoError(t, err)
	assert.InDelta(t, 80, DominantThickness(spec, 30), 8)
}

func TestParrattModel_ZeroQ(t *testing.T) {
	r := NewParrattModel().Reflectivity(entities.DefaultLayerStack(), []float64{0})
	assert.InDelta(t, 1.0, r[0], 1e-6)
}

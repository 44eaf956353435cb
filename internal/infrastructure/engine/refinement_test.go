package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/xrrlab/internal/application/ports"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	domainsvc "github.com/reglet-dev/xrrlab/internal/domain/services"
)

func TestRefinement_ImprovesCandidate(t *testing.T) {
	model := domainsvc.NewParrattModel()
	measured := model.Curve(goldFilm(80), qGrid(200, 0.1, 0.6))
	start := goldFilm(77)
	candidate := &ports.Candidate{Stack: start, Curve: model.Curve(start, measured.X), Scale: 1}
	initial := domainsvc.LogChi2(measured.Y, candidate.Curve.Y)

	r, err := NewRefinement(model, DefaultConfig(), nil).Refine(context.Background(), ports.RefinementInput{
		Measured:  measured,
		Candidate: candidate,
	})
	require.NoError(t, err)

	assert.Less(t, r.Objective, initial)
	assert.InDelta(t, 80, r.Stack.Layers()[0].Thickness, 3)
	assert.Greater(t, r.Evaluations, 0)
	assert.Equal(t, measured.Len(), r.Curve.Len())
	assert.Equal(t, start.Layers()[0].ID, r.Stack.Layers()[0].ID, "identities survive refinement")
	for _, l := range r.Stack.Layers() {
		assert.GreaterOrEqual(t, l.Density, 0.0)
		assert.GreaterOrEqual(t, l.Roughness, 0.0)
		assert.GreaterOrEqual(t, l.Thickness, 0.0)
	}
}

func TestRefinement_RespectsEvaluationLimit(t *testing.T) {
	model := domainsvc.NewParrattModel()
	measured := model.Curve(goldFilm(80), qGrid(60, 0.1, 0.6))
	cfg := DefaultConfig()
	cfg.MaxEvaluations = 25

	r, err := NewRefinement(model, cfg, nil).Refine(context.Background(), ports.RefinementInput{
		Measured:  measured,
		Candidate: &ports.Candidate{Stack: goldFilm(70), Scale: 1},
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, r.Evaluations, 30)
}

func TestRefinement_Errors(t *testing.T) {
	stage := NewRefinement(domainsvc.NewParrattModel(), DefaultConfig(), nil)
	measured := entities.Curve{X: []float64{0.1, 0.2}, Y: []float64{1e-3, 1e-4}}

	_, err := stage.Refine(context.Background(), ports.RefinementInput{Measured: measured})
	assert.Error(t, err, "missing candidate")

	_, err = stage.Refine(context.Background(), ports.RefinementInput{
		Measured:  entities.Curve{},
		Candidate: &ports.Candidate{Stack: goldFilm(10)},
	})
	var insufficient *entities.InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = stage.Refine(ctx, ports.RefinementInput{Measured: measured, Candidate: &ports.Candidate{Stack: goldFilm(10)}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParameterization_RoundTrip(t *testing.T) {
	stack := entities.NewLayerStack(
		entities.NewMaterialLayer("Si", 0, 2.33, 0),
		entities.NewMaterialLayer("Cr", 0, 7.19, 4.5),
		entities.NewMaterialLayer("Au", 120, 19.32, 5),
	)
	p := newParameterization(&ports.Candidate{Stack: stack, Scale: 100}, []float64{1, 1e-3, 0})

	x := p.initial()
	require.Len(t, x, 3+3+2+2)

	decoded, scale, background := p.decode(x)
	assert.Equal(t, stack.Layers(), decoded.Layers())
	assert.InDelta(t, 100, scale, 1e-9)
	assert.InDelta(t, 1e-5, background, 1e-12)

	x[0] = -2 // negative values mirror to positive magnitudes
	decoded, _, _ = p.decode(x)
	assert.InDelta(t, 240, decoded.Layers()[0].Thickness, 1e-9)
}

package execution_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/execution"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

func TestAnalysisResult_Lifecycle(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := execution.NewAnalysisResult(values.NewRunID(), start)
	assert.Equal(t, values.RunStateInferring, r.State)

	refining := r.Next(values.RunStateRefining)
	assert.Equal(t, values.RunStateInferring, r.State, "Next must not mutate the receiver")
	assert.Equal(t, values.RunStateRefining, refining.State)

	refining.FitCurve = &entities.Curve{X: []float64{0.1}, Y: []float64{1}}
	refining.Residual = &entities.Curve{X: []float64{0.1}, Y: []float64{0}}
	refining.FittedStack = entities.DefaultLayerStack().Layers()
	refining.Profile = &entities.DensityProfile{}
	refining.Spectrum = &entities.FourierSpectrum{}
	refining.Metrics = &entities.FitMetrics{FOM: 100}
	assert.False(t, refining.IsComplete())

	done := refining.Finish(start.Add(2 * time.Second))
	assert.True(t, done.IsComplete())
	assert.Equal(t, 2*time.Second, done.Duration)
}

func TestAnalysisResult_Fail_ClearsArtifacts(t *testing.T) {
	t.Parallel()

	start := time.Now()
	r := execution.NewAnalysisResult(values.NewRunID(), start).Next(values.RunStateRefining)
	r.InferenceCurve = &entities.Curve{}
	r.Metrics = &entities.FitMetrics{Chi2: 1}
	r.FittedStack = entities.DefaultLayerStack().Layers()

	failed := r.Fail(errors.New("diverged"), start.Add(time.Second))

	assert.Equal(t, values.RunStateFailed, failed.State)
	assert.Equal(t, "diverged", failed.Error)
	assert.Nil(t, failed.Metrics)
	assert.Nil(t, failed.FittedStack)
	assert.NotNil(t, failed.InferenceCurve)
	assert.True(t, failed.RunID.Equals(r.RunID))
}

func TestAnalysisResult_ExpectationsPassed(t *testing.T) {
	t.Parallel()

	r := execution.IdleResult()
	assert.True(t, r.ExpectationsPassed())

	r.Expectations = []execution.ExpectationResult{{Expression: "fom > 90", Passed: true}, {Expression: "chi2 < 1", Passed: false}}
	assert.False(t, r.ExpectationsPassed())
	assert.Equal(t, 1, r.FailedExpectations())
}

// Package observability records pipeline metrics with Prometheus.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reglet-dev/xrrlab/internal/application/ports"
	"github.com/reglet-dev/xrrlab/internal/domain/execution"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

const namespace = "xrrlab"

var _ ports.MetricsRecorder = (*PipelineMetrics)(nil)

// PipelineMetrics implements ports.MetricsRecorder on its own registry.
type PipelineMetrics struct {
	registry *prometheus.Registry

	runsStarted   prometheus.Counter
	runsFinished  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	runDuration   prometheus.Histogram
	lastChi2      prometheus.Gauge
	lastFOM       prometheus.Gauge
	lastMAE       prometheus.Gauge
	evaluations   prometheus.Histogram
}

// NewPipelineMetrics creates the collectors on a fresh registry.
func NewPipelineMetrics() *PipelineMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PipelineMetrics{
		registry: reg,
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Analysis runs started",
		}),
		runsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Analysis runs finished, by terminal state",
		}, []string{"state"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished runs",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		lastChi2: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fit_chi2",
			Help:      "Reduced chi-squared of the last successful fit",
		}),
		lastFOM: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fit_fom",
			Help:      "Figure of merit of the last successful fit",
		}),
		lastMAE: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fit_mae",
			Help:      "Mean absolute error of the last successful fit",
		}),
		evaluations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refinement_evaluations",
			Help:      "Forward-model evaluations spent by refinement",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 12),
		}),
	}
}

// Registry exposes the registry for scraping or export.
func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RunStarted counts a run.
func (m *PipelineMetrics) RunStarted() {
	m.runsStarted.Inc()
}

// StageCompleted observes the duration of a stage.
func (m *PipelineMetrics) StageCompleted(stage values.RunState, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
}

// RunFinished records the terminal state and, on success, the fit quality.
func (m *PipelineMetrics) RunFinished(result *execution.AnalysisResult) {
	m.runsFinished.WithLabelValues(string(result.State)).Inc()
	m.runDuration.Observe(result.Duration.Seconds())
	if result.State != values.RunStateSucceeded || result.Metrics == nil {
		return
	}
	m.lastChi2.Set(result.Metrics.Chi2)
	m.lastFOM.Set(result.Metrics.FOM)
	m.lastMAE.Set(result.Metrics.MAE)
	m.evaluations.Observe(float64(result.Evaluations))
}

// WriteTextfile writes the current values in the node_exporter textfile format.
func (m *PipelineMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

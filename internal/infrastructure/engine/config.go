// Package engine implements the inference and refinement stages of the analysis pipeline.
package engine

import (
	"runtime"
)

// Search and optimizer limits.
const (
	// MinSearchWorkers keeps the coarse search parallel even on single-core systems.
	MinSearchWorkers = 2

	// MaxSearchWorkers caps concurrent forward-model evaluations during the coarse search.
	MaxSearchWorkers = 16

	// MinSearchPoints is the smallest useful scale-factor grid.
	MinSearchPoints = 3
)

// Config controls the inference search and the refinement optimizer.
type Config struct {
	// ScaleMin and ScaleMax bound the thickness scale factor of the coarse search.
	ScaleMin     float64 `yaml:"scale_min" validate:"gt=0"`
	ScaleMax     float64 `yaml:"scale_max" validate:"gtfield=ScaleMin"`
	SearchPoints int     `yaml:"search_points" validate:"gte=3"`
	Workers      int     `yaml:"workers" validate:"gte=0"`

	MaxEvaluations int     `yaml:"max_evaluations" validate:"gt=0"`
	MaxIterations  int     `yaml:"max_iterations" validate:"gte=0"`
	Tolerance      float64 `yaml:"tolerance" validate:"gt=0"`
}

// DefaultConfig returns defaults sized to the machine.
func DefaultConfig() Config {
	workers := runtime.NumCPU()
	if workers < MinSearchWorkers {
		workers = MinSearchWorkers
	}
	if workers > MaxSearchWorkers {
		workers = MaxSearchWorkers
	}

	return Config{
		ScaleMin:       0.5,
		ScaleMax:       1.5,
		SearchPoints:   41,
		Workers:        workers,
		MaxEvaluations: 4000,
		MaxIterations:  0, // 0 = bounded by evaluations only
		Tolerance:      1e-7,
	}
}

// normalized fills zero or out-of-range fields with defaults.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.ScaleMin <= 0 || c.ScaleMax <= c.ScaleMin {
		c.ScaleMin, c.ScaleMax = def.ScaleMin, def.ScaleMax
	}
	if c.SearchPoints < MinSearchPoints {
		c.SearchPoints = def.SearchPoints
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.MaxEvaluations <= 0 {
		c.MaxEvaluations = def.MaxEvaluations
	}
	if c.Tolerance <= 0 {
		c.Tolerance = def.Tolerance
	}
	return c
}

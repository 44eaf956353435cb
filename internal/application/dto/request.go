// Package dto contains data transfer objects for application layer use cases.
package dto

import (
	"time"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// ImportRequest describes a delimited text import.
type ImportRequest struct {
	Source string
	// Unit of the X column; empty means guess from the data.
	Unit    values.AxisUnit
	Columns entities.ColumnMap
}

// AddLayerRequest describes a new overlayer. Preset takes precedence over the
// explicit fields; a zero request adds the default layer.
type AddLayerRequest struct {
	Preset    string
	Material  string
	Thickness *float64
	Density   *float64
	Roughness *float64
}

// AnalyzeRequest starts a pipeline run.
type AnalyzeRequest struct {
	Expectations []string
	// Timeout bounds the run; zero means no limit.
	Timeout time.Duration
}

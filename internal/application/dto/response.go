package dto

import (
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/services"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// ImportResponse reports what an import produced.
type ImportResponse struct {
	Quality services.DataQuality `json:"quality" yaml:"quality"`
	Unit    values.AxisUnit      `json:"unit" yaml:"unit"`
	Guessed bool                 `json:"guessed" yaml:"guessed"`
}

// StackView is a read-only view of the editable stack.
type StackView struct {
	Layers         []entities.MaterialLayer `json:"layers" yaml:"layers"`
	TotalThickness float64                  `json:"total_thickness" yaml:"total_thickness"`
}

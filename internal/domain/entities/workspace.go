package entities

import (
	"fmt"

	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// WorkspaceFormatVersion is written into every persisted workspace.
const WorkspaceFormatVersion = "1.0.0"

// DefaultBeamWidth is the nominal beam width in millimetres.
const DefaultBeamWidth = 0.2

// ColumnMap selects the X and Y columns of an import, zero based.
type ColumnMap struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// DefaultColumnMap uses the first two columns.
func DefaultColumnMap() ColumnMap {
	return ColumnMap{X: 0, Y: 1}
}

// Validate rejects negative or identical columns.
func (c ColumnMap) Validate() error {
	if c.X < 0 || c.Y < 0 {
		return NewConfigurationError("column_map", c, "column indices must be non-negative")
	}
	if c.X == c.Y {
		return NewConfigurationError("column_map", c, "x and y must be different columns")
	}
	return nil
}

// RawData is an import exactly as it was read, before unit conversion.
type RawData struct {
	Source string    `json:"source,omitempty" yaml:"source,omitempty"`
	X      []float64 `json:"original_x" yaml:"original_x"`
	Y      []float64 `json:"y" yaml:"y"`
}

// Workspace is the editable state of one analysis: the sample model,
// the instrument setup and the imported measurement.
type Workspace struct {
	Name       string
	Wavelength values.Wavelength
	BeamWidth  float64
	AxisUnit   values.AxisUnit
	Columns    ColumnMap
	Stack      *LayerStack
	Raw        *RawData
	Measured   *MeasuredCurve
}

// NewWorkspace creates a workspace with laboratory defaults.
func NewWorkspace(name string) *Workspace {
	return &Workspace{
		Name:       name,
		Wavelength: values.CuKAlpha1,
		BeamWidth:  DefaultBeamWidth,
		AxisUnit:   values.AxisTwoTheta,
		Columns:    DefaultColumnMap(),
		Stack:      DefaultLayerStack(),
	}
}

// HasData reports whether a non-empty measured curve is loaded.
func (w *Workspace) HasData() bool {
	return w.Measured != nil && !w.Measured.IsEmpty()
}

// Validate checks the instrument settings and the stack.
func (w *Workspace) Validate() error {
	if err := w.Wavelength.Validate(); err != nil {
		return NewConfigurationError("wavelength", float64(w.Wavelength), err.Error())
	}
	if err := w.AxisUnit.Validate(); err != nil {
		return NewConfigurationError("x_axis_unit", string(w.AxisUnit), err.Error())
	}
	if err := w.Columns.Validate(); err != nil {
		return err
	}
	if w.Stack == nil || w.Stack.Len() == 0 {
		return fmt.Errorf("workspace %q has no layer stack", w.Name)
	}
	return nil
}

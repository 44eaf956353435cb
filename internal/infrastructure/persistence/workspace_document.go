// Package persistence holds the on-disk workspace format shared by the storage backends.
package persistence

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/reglet-dev/xrrlab/internal/application/ports"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// WorkspaceDocument is the persisted form of a workspace. Layers run from the surface to
// the substrate. The measured curve is not stored; it is rebuilt from Data on load.
type WorkspaceDocument struct {
	FormatVersion string                   `yaml:"format_version"`
	Name          string                   `yaml:"name,omitempty"`
	Instrument    InstrumentDocument       `yaml:"instrument"`
	Columns       entities.ColumnMap       `yaml:"columns"`
	Layers        []entities.MaterialLayer `yaml:"layers"`
	Data          *entities.RawData        `yaml:"data,omitempty"`
}

// InstrumentDocument is the instrument section of a workspace document.
type InstrumentDocument struct {
	Wavelength float64         `yaml:"wavelength"`
	BeamWidth  float64         `yaml:"beam_width"`
	AxisUnit   values.AxisUnit `yaml:"axis_unit"`
}

// NewWorkspaceDocument captures ws.
func NewWorkspaceDocument(ws *entities.Workspace) *WorkspaceDocument {
	return &WorkspaceDocument{
		FormatVersion: entities.WorkspaceFormatVersion,
		Name:          ws.Name,
		Instrument: InstrumentDocument{
			Wavelength: float64(ws.Wavelength),
			BeamWidth:  ws.BeamWidth,
			AxisUnit:   ws.AxisUnit,
		},
		Columns: ws.Columns,
		Layers:  ws.Stack.Layers(),
		Data:    ws.Raw,
	}
}

// Workspace rebuilds the workspace. Layers without an ID get a fresh one.
// Measured is left nil for the session to re-convert from Data.
func (d *WorkspaceDocument) Workspace() (*entities.Workspace, error) {
	layers := make([]entities.MaterialLayer, len(d.Layers))
	copy(layers, d.Layers)
	for i := range layers {
		if layers[i].ID.IsZero() {
			layers[i].ID = values.NewLayerID()
		}
	}
	stack, err := entities.NewLayerStackFromLayers(layers)
	if err != nil {
		return nil, err
	}

	ws := &entities.Workspace{
		Name:       d.Name,
		Wavelength: values.Wavelength(d.Instrument.Wavelength),
		BeamWidth:  d.Instrument.BeamWidth,
		AxisUnit:   d.Instrument.AxisUnit,
		Columns:    d.Columns,
		Stack:      stack,
		Raw:        d.Data,
	}
	if ws.AxisUnit == "" {
		ws.AxisUnit = values.AxisTwoTheta
	}
	if ws.Raw != nil && len(ws.Raw.X) != len(ws.Raw.Y) {
		return nil, entities.NewShapeMismatchError("stored data", len(ws.Raw.X), len(ws.Raw.Y))
	}
	return ws, nil
}

// EncodeWorkspace serialises ws as a YAML workspace document.
func EncodeWorkspace(ws *entities.Workspace) ([]byte, error) {
	data, err := yaml.Marshal(NewWorkspaceDocument(ws))
	if err != nil {
		return nil, fmt.Errorf("failed to encode workspace: %w", err)
	}
	return data, nil
}

// DecodeWorkspace validates and decodes a workspace document. validator may be nil.
func DecodeWorkspace(data []byte, validator ports.WorkspaceValidator) (*entities.Workspace, error) {
	if validator != nil {
		if err := validator.Validate(data); err != nil {
			return nil, err
		}
	}
	var doc WorkspaceDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode workspace: %w", err)
	}
	return doc.Workspace()
}

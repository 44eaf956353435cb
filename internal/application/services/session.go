package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/reglet-dev/xrrlab/internal/application/dto"
	"github.com/reglet-dev/xrrlab/internal/application/ports"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/execution"
	"github.com/reglet-dev/xrrlab/internal/domain/repositories"
	domainsvc "github.com/reglet-dev/xrrlab/internal/domain/services"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// SessionDeps are the collaborators of a Session. Cache and Repository are optional.
type SessionDeps struct {
	Converter   *domainsvc.UnitConverter
	Parser      *domainsvc.DataParser
	Synthesizer *domainsvc.DensitySynthesizer
	Pipeline    *Pipeline
	Cache       ports.ProfileCache
	Repository  repositories.WorkspaceRepository
	Logger      *slog.Logger
}

// Session owns one workspace: the editable stack, the instrument setup, the
// imported data and the pipeline that analyses it. Edits are serialised by a
// mutex and never affect a run already in flight.
type Session struct {
	deps   SessionDeps
	logger *slog.Logger

	mu sync.RWMutex
	ws *entities.Workspace
}

// NewSession wraps ws. If ws carries raw data but no converted curve, the curve is rebuilt.
func NewSession(ws *entities.Workspace, deps SessionDeps) (*Session, error) {
	if deps.Converter == nil {
		deps.Converter = domainsvc.NewUnitConverter()
	}
	if deps.Parser == nil {
		deps.Parser = domainsvc.NewDataParser()
	}
	if deps.Synthesizer == nil {
		deps.Synthesizer = domainsvc.NewDensitySynthesizer(domainsvc.DefaultDepthGrid())
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}

	s := &Session{deps: deps, logger: deps.Logger, ws: ws}
	if ws.Raw != nil && ws.Measured == nil {
		if err := s.reconvertLocked(ws.AxisUnit, ws.Wavelength); err != nil {
			return nil, fmt.Errorf("failed to convert stored data: %w", err)
		}
	}
	return s, nil
}

// Name returns the workspace name.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ws.Name
}

// Stack returns a copy of the editable stack.
func (s *Session) Stack() *entities.LayerStack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ws.Stack.Clone()
}

// StackView returns the layers and total thickness of the editable stack.
func (s *Session) StackView() dto.StackView {
	stack := s.Stack()
	return dto.StackView{Layers: stack.Layers(), TotalThickness: stack.TotalThickness()}
}

// Measured returns a copy of the measured curve, or nil.
func (s *Session) Measured() *entities.MeasuredCurve {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ws.Measured.Clone()
}

// Wavelength returns the instrument wavelength.
func (s *Session) Wavelength() values.Wavelength {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ws.Wavelength
}

// AxisUnit returns the unit the imported X column is interpreted in.
func (s *Session) AxisUnit() values.AxisUnit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ws.AxisUnit
}

// AddLayer inserts a layer above the substrate and returns it.
func (s *Session) AddLayer(req dto.AddLayerRequest) (entities.MaterialLayer, error) {
	var layer entities.MaterialLayer
	if req.Preset != "" {
		preset, ok := entities.FindPreset(req.Preset)
		if !ok {
			return entities.MaterialLayer{}, fmt.Errorf("unknown material preset %q", req.Preset)
		}
		layer = preset.NewLayer()
	} else {
		layer = entities.NewDefaultLayer()
	}
	if req.Material != "" {
		layer.Material = req.Material
	}
	if req.Thickness != nil {
		layer.Thickness = *req.Thickness
	}
	if req.Density != nil {
		layer.Density = *req.Density
	}
	if req.Roughness != nil {
		layer.Roughness = *req.Roughness
	}
	for _, v := range []float64{layer.Thickness, layer.Density, layer.Roughness} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return entities.MaterialLayer{}, fmt.Errorf("layer %s: %v is not a finite number", layer.Material, v)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ws.Stack.Insert(layer)
	s.logger.Debug("layer added", "id", layer.ID, "material", layer.Material)
	return layer, nil
}

// UpdateLayer sets one field of a layer addressed by ID or unique ID prefix.
func (s *Session) UpdateLayer(ref string, field entities.LayerField, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	layer, err := s.ws.Stack.FindByPrefix(ref)
	if err != nil {
		return err
	}
	return s.ws.Stack.Update(layer.ID, field, value)
}

// RemoveLayer deletes an overlayer. The substrate and unknown references are left alone
// and reported as false.
func (s *Session) RemoveLayer(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	layer, err := s.ws.Stack.FindByPrefix(ref)
	if err != nil {
		return false
	}
	return s.ws.Stack.Remove(layer.ID)
}

// ReorderLayers moves an overlayer; moves touching the substrate are ignored.
func (s *Session) ReorderLayers(oldIndex, newIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.Stack.Reorder(oldIndex, newIndex)
}

// SetWavelength changes the wavelength and re-converts the imported data.
func (s *Session) SetWavelength(w values.Wavelength) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := w.Validate(); err != nil {
		return entities.NewConfigurationError("wavelength", float64(w), err.Error())
	}
	if err := s.reconvertLocked(s.ws.AxisUnit, w); err != nil {
		return err
	}
	s.ws.Wavelength = w
	return nil
}

// SetAxisUnit changes the unit of the imported X column and re-converts the data.
func (s *Session) SetAxisUnit(u values.AxisUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := u.Validate(); err != nil {
		return entities.NewConfigurationError("x_axis_unit", string(u), err.Error())
	}
	if err := s.reconvertLocked(u, s.ws.Wavelength); err != nil {
		return err
	}
	s.ws.AxisUnit = u
	return nil
}

// Import parses delimited text, converts it and replaces the measured curve.
// Unparsable rows are dropped; the import fails only if none survive.
func (s *Session) Import(r io.Reader, req dto.ImportRequest) (*dto.ImportResponse, error) {
	if req.Columns == (entities.ColumnMap{}) {
		req.Columns = entities.DefaultColumnMap()
	}
	if err := req.Columns.Validate(); err != nil {
		return nil, err
	}
	parsed, err := s.deps.Parser.Parse(r, req.Source, req.Columns)
	if err != nil {
		return nil, err
	}

	unit, guessed := req.Unit, false
	if unit == "" {
		unit, guessed = values.GuessAxisUnit(parsed.X), true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	measured, err := s.deps.Converter.ConvertMeasured(parsed.X, parsed.Y, unit, s.ws.Wavelength)
	if err != nil {
		return nil, err
	}
	s.ws.Raw = &entities.RawData{Source: req.Source, X: measured.OriginalX, Y: measured.Y}
	s.ws.Measured = measured
	s.ws.AxisUnit = unit
	s.ws.Columns = req.Columns

	quality := domainsvc.AssessQuality(measured.Curve, parsed.Dropped)
	s.logger.Info("data imported",
		"source", req.Source,
		"points", quality.Points,
		"dropped", quality.Dropped,
		"unit", unit,
		"guessed", guessed)
	return &dto.ImportResponse{Quality: quality, Unit: unit, Guessed: guessed}, nil
}

// Quality summarises the loaded curve. It reports false when no data is loaded.
func (s *Session) Quality() (domainsvc.DataQuality, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ws.HasData() {
		return domainsvc.DataQuality{}, false
	}
	return domainsvc.AssessQuality(s.ws.Measured.Curve, 0), true
}

// ToAxis expresses q in the current X unit and wavelength.
func (s *Session) ToAxis(q float64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deps.Converter.FromQ(q, s.ws.AxisUnit, s.ws.Wavelength)
}

// Profile synthesizes the density profile of the editable stack.
// Cached profiles are shared, so callers receive a copy.
func (s *Session) Profile() *entities.DensityProfile {
	stack := s.Stack()
	if s.deps.Cache == nil {
		return s.deps.Synthesizer.Synthesize(stack)
	}
	key := s.deps.Synthesizer.Fingerprint(stack)
	if p, ok := s.deps.Cache.Get(key); ok {
		return p.Clone()
	}
	p := s.deps.Synthesizer.Synthesize(stack)
	s.deps.Cache.Add(key, p)
	return p.Clone()
}

// Analyze starts a pipeline run on a snapshot of the current stack and data.
func (s *Session) Analyze(ctx context.Context, req dto.AnalyzeRequest) (values.RunID, error) {
	if s.deps.Pipeline == nil {
		return values.RunID{}, errors.New("session has no analysis pipeline")
	}
	s.mu.RLock()
	in := RunInput{
		Measured:     s.ws.Measured,
		Stack:        s.ws.Stack,
		Expectations: req.Expectations,
		Workspace:    s.ws.Name,
	}
	// Start clones the inputs before returning, so the read lock covers the snapshot.
	id, err := s.deps.Pipeline.Start(ctx, in)
	s.mu.RUnlock()
	return id, err
}

// AnalyzeAndWait runs the pipeline to completion, honouring req.Timeout.
func (s *Session) AnalyzeAndWait(ctx context.Context, req dto.AnalyzeRequest) (*execution.AnalysisResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	if _, err := s.Analyze(ctx, req); err != nil {
		return nil, err
	}
	return s.deps.Pipeline.Wait(ctx)
}

// Result returns the last published analysis bundle.
func (s *Session) Result() *execution.AnalysisResult {
	if s.deps.Pipeline == nil {
		return execution.IdleResult()
	}
	return s.deps.Pipeline.Result()
}

// Save persists the workspace through the configured repository.
func (s *Session) Save(ctx context.Context) error {
	if s.deps.Repository == nil {
		return errors.New("session has no workspace repository")
	}
	s.mu.RLock()
	snapshot := s.snapshotLocked()
	s.mu.RUnlock()

	start := time.Now()
	if err := s.deps.Repository.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save workspace %q: %w", snapshot.Name, err)
	}
	s.logger.Debug("workspace saved", "name", snapshot.Name, "elapsed", time.Since(start))
	return nil
}

// Snapshot returns a deep copy of the workspace.
func (s *Session) Snapshot() *entities.Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() *entities.Workspace {
	ws := *s.ws
	ws.Stack = s.ws.Stack.Clone()
	ws.Measured = s.ws.Measured.Clone()
	if s.ws.Raw != nil {
		raw := *s.ws.Raw
		raw.X = append([]float64(nil), raw.X...)
		raw.Y = append([]float64(nil), raw.Y...)
		ws.Raw = &raw
	}
	return &ws
}

// reconvertLocked rebuilds the measured curve from the raw import.
func (s *Session) reconvertLocked(unit values.AxisUnit, w values.Wavelength) error {
	if s.ws.Raw == nil {
		return nil
	}
	measured, err := s.deps.Converter.ConvertMeasured(s.ws.Raw.X, s.ws.Raw.Y, unit, w)
	if err != nil {
		return err
	}
	s.ws.Measured = measured
	return nil
}

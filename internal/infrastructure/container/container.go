// Package container provides dependency injection for the application.
package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/reglet-dev/xrrlab/internal/application/errors"
	"github.com/reglet-dev/xrrlab/internal/application/services"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/repositories"
	domainsvc "github.com/reglet-dev/xrrlab/internal/domain/services"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/cache"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/engine"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/observability"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/output"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/persistence/badger"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/persistence/file"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/persistence/memory"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/system"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/validation"
)

// DefaultBadgerDir is the database directory used when the badger backend has no path.
const DefaultBadgerDir = ".xrrlab"

// Container holds all application dependencies.
type Container struct {
	systemCfg   *system.Config
	logger      *slog.Logger
	converter   *domainsvc.UnitConverter
	parser      *domainsvc.DataParser
	synthesizer *domainsvc.DensitySynthesizer
	pipeline    *services.Pipeline
	workspaces  repositories.WorkspaceRepository
	results     repositories.AnalysisResultRepository
	metrics     *observability.PipelineMetrics
	profiles    *cache.ProfileCache
	formatters  *output.FormatterFactory
	db          *badger.DB
	name        string
}

// Options configure the container.
type Options struct {
	Logger           *slog.Logger
	SystemConfigPath string
	// WorkspacePath overrides storage.path from the system config.
	WorkspacePath string
	// Store overrides storage.backend from the system config.
	Store string
	// WorkspaceName keys the workspace inside a badger store.
	WorkspaceName string
}

// New creates a new dependency injection container.
func New(opts Options) (*Container, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	configPath := opts.SystemConfigPath
	if configPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configPath = filepath.Join(home, ".xrrlab", "config.yaml")
		}
	}
	systemCfg, err := system.NewConfigLoader().Load(configPath)
	if err != nil {
		return nil, err
	}
	if opts.Store != "" {
		systemCfg.Storage.Backend = opts.Store
	}
	if opts.WorkspacePath != "" {
		systemCfg.Storage.Path = opts.WorkspacePath
	}
	if opts.WorkspaceName == "" {
		opts.WorkspaceName = "default"
	}

	// Domain services
	converter := domainsvc.NewUnitConverter()
	parser := domainsvc.NewDataParser()
	synthesizer := domainsvc.NewDensitySynthesizer(systemCfg.Synthesis)
	fourier := domainsvc.NewFourierAnalyzer(systemCfg.Fourier)
	evaluator := domainsvc.NewFitEvaluator(systemCfg.Fit)
	model := domainsvc.NewParrattModel()

	c := &Container{
		systemCfg:   systemCfg,
		logger:      opts.Logger,
		converter:   converter,
		parser:      parser,
		synthesizer: synthesizer,
		metrics:     observability.NewPipelineMetrics(),
		profiles:    cache.NewProfileCache(systemCfg.Cache.Profiles),
		formatters:  output.NewFormatterFactory(),
		name:        opts.WorkspaceName,
	}

	if err := c.openStorage(); err != nil {
		return nil, err
	}

	c.pipeline = services.NewPipeline(services.PipelineDeps{
		Inference:    engine.NewInference(model, fourier, systemCfg.Refinement, opts.Logger),
		Refinement:   engine.NewRefinement(model, systemCfg.Refinement, opts.Logger),
		Synthesizer:  synthesizer,
		Fourier:      fourier,
		Evaluator:    evaluator,
		Expectations: domainsvc.NewExpectationEvaluator(),
		Results:      c.results,
		Metrics:      c.metrics,
		Logger:       opts.Logger,
	})

	return c, nil
}

func (c *Container) openStorage() error {
	validator := validation.NewWorkspaceValidator()

	switch c.systemCfg.Storage.Backend {
	case system.StorageBadger:
		dir := c.systemCfg.Storage.Path
		if dir == "" {
			dir = DefaultBadgerDir
		}
		cfg := badger.DefaultConfig(dir)
		cfg.Logger = c.logger
		db, err := badger.Open(cfg)
		if err != nil {
			return apperrors.NewConfigurationError("storage", "cannot open badger store at "+dir, err)
		}
		c.db = db
		c.workspaces = badger.NewWorkspaceRepository(db, c.name, validator)
		c.results = badger.NewAnalysisResultRepository(db)
	case system.StorageFile, "":
		c.workspaces = file.NewWorkspaceRepository(c.systemCfg.Storage.Path, validator)
		c.results = memory.NewAnalysisResultRepository()
	default:
		return apperrors.NewConfigurationError("storage",
			fmt.Sprintf("unknown storage backend %q", c.systemCfg.Storage.Backend),
			fmt.Errorf("expected %s or %s", system.StorageFile, system.StorageBadger))
	}
	c.logger.Debug("storage opened", "backend", c.systemCfg.Storage.Backend, "path", c.systemCfg.Storage.Path)
	return nil
}

// NewWorkspace creates a workspace seeded with the configured instrument.
func (c *Container) NewWorkspace(name string) *entities.Workspace {
	ws := entities.NewWorkspace(name)
	ws.Wavelength = values.Wavelength(c.systemCfg.Instrument.Wavelength)
	ws.BeamWidth = c.systemCfg.Instrument.BeamWidth
	return ws
}

// NewSession wraps ws with the container's collaborators.
func (c *Container) NewSession(ws *entities.Workspace) (*services.Session, error) {
	return services.NewSession(ws, services.SessionDeps{
		Converter:   c.converter,
		Parser:      c.parser,
		Synthesizer: c.synthesizer,
		Pipeline:    c.pipeline,
		Cache:       c.profiles,
		Repository:  c.workspaces,
		Logger:      c.logger,
	})
}

// OpenSession loads the stored workspace. A missing workspace is an error
// unless create is set, in which case a fresh one is returned unsaved.
func (c *Container) OpenSession(ctx context.Context, create bool) (*services.Session, error) {
	ws, err := c.workspaces.Load(ctx)
	switch {
	case errors.Is(err, repositories.ErrNotFound) && create:
		ws = c.NewWorkspace(c.name)
	case errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("%w (run 'xrrlab init' first)", err)
	case err != nil:
		return nil, err
	}
	return c.NewSession(ws)
}

// Close releases the storage backend.
func (c *Container) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Name returns the workspace name new workspaces are created with.
func (c *Container) Name() string {
	return c.name
}

// Pipeline returns the analysis pipeline.
func (c *Container) Pipeline() *services.Pipeline {
	return c.pipeline
}

// Workspaces returns the workspace repository.
func (c *Container) Workspaces() repositories.WorkspaceRepository {
	return c.workspaces
}

// Results returns the analysis result repository.
func (c *Container) Results() repositories.AnalysisResultRepository {
	return c.results
}

// Metrics returns the pipeline metrics.
func (c *Container) Metrics() *observability.PipelineMetrics {
	return c.metrics
}

// Formatters returns the output formatter factory.
func (c *Container) Formatters() *output.FormatterFactory {
	return c.formatters
}

// SystemConfig returns the system configuration.
func (c *Container) SystemConfig() *system.Config {
	return c.systemCfg
}

// Logger returns the configured logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Package system provides infrastructure for system-level configuration.
// This includes loading the system config file (~/.xrrlab/config.yaml) that
// tunes the instrument defaults, the numerical engines and storage.
package system

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	apperrors "github.com/reglet-dev/xrrlab/internal/application/errors"
	domainsvc "github.com/reglet-dev/xrrlab/internal/domain/services"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/engine"
)

// Storage backends.
const (
	StorageFile   = "file"
	StorageBadger = "badger"
)

// Config represents the global configuration file (~/.xrrlab/config.yaml).
// This is infrastructure-level configuration separate from workspace documents.
type Config struct {
	Instrument InstrumentConfig        `yaml:"instrument"`
	Synthesis  domainsvc.DepthGrid     `yaml:"synthesis"`
	Fourier    domainsvc.FourierConfig `yaml:"fourier"`
	Fit        domainsvc.FitConfig     `yaml:"fit"`
	Refinement engine.Config           `yaml:"refinement"`
	Storage    StorageConfig           `yaml:"storage"`
	Cache      CacheConfig             `yaml:"cache"`
	Metrics    MetricsConfig           `yaml:"metrics"`
}

// InstrumentConfig seeds new workspaces.
type InstrumentConfig struct {
	Wavelength float64 `yaml:"wavelength" validate:"gt=0"`
	BeamWidth  float64 `yaml:"beam_width" validate:"gte=0"`
}

// StorageConfig selects where workspaces and results are kept.
type StorageConfig struct {
	// Backend is "file" (YAML workspace, results in memory) or "badger".
	Backend string `yaml:"backend" validate:"oneof=file badger"`
	// Path is the workspace file or the badger directory. Empty uses the workspace default.
	Path string `yaml:"path"`
}

// CacheConfig sizes the density profile cache.
type CacheConfig struct {
	Profiles int `yaml:"profiles" validate:"gte=1"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	// Textfile, if set, receives the run metrics after every analyze command.
	Textfile string `yaml:"textfile"`
}

// ConfigLoader loads system configuration from disk.
type ConfigLoader struct {
	validate *validator.Validate
}

// NewConfigLoader creates a new system config loader.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{validate: validator.New()}
}

// DefaultConfig returns a Config with defaults for all fields.
// This is used when no system config file exists.
func DefaultConfig() *Config {
	return &Config{
		Instrument: InstrumentConfig{
			Wavelength: float64(values.CuKAlpha1),
			BeamWidth:  0.2,
		},
		Synthesis:  domainsvc.DefaultDepthGrid(),
		Fourier:    domainsvc.DefaultFourierConfig(),
		Fit:        domainsvc.DefaultFitConfig(),
		Refinement: engine.DefaultConfig(),
		Storage:    StorageConfig{Backend: StorageFile},
		Cache:      CacheConfig{Profiles: 64},
	}
}

// Load loads the system configuration from the specified path.
// If the file does not exist, returns DefaultConfig().
// Fields missing from the file keep their defaults.
func (l *ConfigLoader) Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	//nolint:gosec // G304: path is user-provided config file, validated to exist above
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError("system config", "failed to read "+path, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, apperrors.NewConfigurationError("system config", "failed to parse "+path, err)
	}

	if err := l.Validate(config); err != nil {
		return nil, apperrors.NewConfigurationError("system config", "invalid settings in "+path, err)
	}
	return config, nil
}

// Validate checks every section against its validation tags.
func (l *ConfigLoader) Validate(config *Config) error {
	err := l.validate.Struct(config)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

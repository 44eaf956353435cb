package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/xrrlab/internal/application/dto"
	apperrors "github.com/reglet-dev/xrrlab/internal/application/errors"
	"github.com/reglet-dev/xrrlab/internal/domain/execution"
	"github.com/reglet-dev/xrrlab/internal/domain/repositories"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/persistence/badger"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/persistence/file"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/persistence/memory"
)

func testOptions(t *testing.T, store string) Options {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "xrrlab.yaml")
	if store == "badger" {
		path = filepath.Join(dir, "db")
	}
	return Options{
		SystemConfigPath: filepath.Join(dir, "missing-config.yaml"),
		WorkspacePath:    path,
		Store:            store,
		WorkspaceName:    "sample-a",
	}
}

func TestNew_FileBackend(t *testing.T) {
	c, err := New(testOptions(t, "file"))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.IsType(t, &file.WorkspaceRepository{}, c.Workspaces())
	assert.IsType(t, &memory.AnalysisResultRepository{}, c.Results())
	assert.Equal(t, values.RunStateIdle, c.Pipeline().State())
	assert.Equal(t, "sample-a", c.Name())
	assert.NotNil(t, c.Metrics())
	assert.Contains(t, c.Formatters().SupportedFormats(), "latex")
	assert.NotNil(t, c.Logger())
}

func TestNew_BadgerBackend(t *testing.T) {
	c, err := New(testOptions(t, "badger"))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.IsType(t, &badger.WorkspaceRepository{}, c.Workspaces())
	assert.IsType(t, &badger.AnalysisResultRepository{}, c.Results())
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(testOptions(t, "s3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")

	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "storage", cfgErr.Aspect)
}

func TestNew_InvalidSystemConfig(t *testing.T) {
	opts := testOptions(t, "file")
	require.NoError(t, os.WriteFile(opts.SystemConfigPath, []byte("storage:\n  backend: postgres\n"), 0o600))

	_, err := New(opts)
	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "system config", cfgErr.Aspect)
}

func TestNewWorkspace_UsesInstrumentConfig(t *testing.T) {
	c, err := New(testOptions(t, "file"))
	require.NoError(t, err)

	c.SystemConfig().Instrument.Wavelength = 0.7093
	c.SystemConfig().Instrument.BeamWidth = 0.1

	ws := c.NewWorkspace("mo-tube")
	assert.Equal(t, "mo-tube", ws.Name)
	assert.InDelta(t, 0.7093, float64(ws.Wavelength), 1e-12)
	assert.InDelta(t, 0.1, ws.BeamWidth, 1e-12)
}

func TestOpenSession(t *testing.T) {
	for _, store := range []string{"file", "badger"} {
		t.Run(store, func(t *testing.T) {
			ctx := context.Background()
			c, err := New(testOptions(t, store))
			require.NoError(t, err)
			defer func() { _ = c.Close() }()

			_, err = c.OpenSession(ctx, false)
			require.ErrorIs(t, err, repositories.ErrNotFound)

			session, err := c.OpenSession(ctx, true)
			require.NoError(t, err)
			_, err = session.AddLayer(dto.AddLayerRequest{Preset: "Au"})
			require.NoError(t, err)
			require.NoError(t, session.Save(ctx))

			reopened, err := c.OpenSession(ctx, false)
			require.NoError(t, err)
			assert.Equal(t, "sample-a", reopened.Name())
			assert.Equal(t, session.Stack().Layers(), reopened.Stack().Layers())
		})
	}
}

func TestBadgerBackend_ResultsOutliveContainer(t *testing.T) {
	ctx := context.Background()
	opts := testOptions(t, "badger")

	c, err := New(opts)
	require.NoError(t, err)
	id := values.NewRunID()
	result := execution.NewAnalysisResult(id, time.Now()).Next(values.RunStateFailed)
	result.Error = "inference: no data"
	require.NoError(t, c.Results().Save(ctx, result))
	require.NoError(t, c.Close())

	reopened, err := New(opts)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	recent, err := reopened.Results().FindRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, id, recent[0].RunID)
	assert.Equal(t, values.RunStateFailed, recent[0].State)
	assert.Equal(t, "inference: no data", recent[0].Error)
}

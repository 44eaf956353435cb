package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/xrrlab/internal/application/dto"
	apperrors "github.com/reglet-dev/xrrlab/internal/application/errors"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/repositories"
	domainsvc "github.com/reglet-dev/xrrlab/internal/domain/services"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/container"
)

const fastConfig = `refinement:
  search_points: 5
  workers: 2
  max_evaluations: 150
`

func newCommandContext(t *testing.T) *CommandContext {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fastConfig), 0o600))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := container.New(container.Options{
		Logger:           logger,
		SystemConfigPath: configPath,
		WorkspacePath:    filepath.Join(dir, "xrrlab.yaml"),
		Store:            "file",
		WorkspaceName:    "cli-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return &CommandContext{Container: c, Logger: logger, Context: context.Background()}
}

func initWorkspace(t *testing.T, cc *CommandContext) {
	t.Helper()
	require.NoError(t, runInit(cc, InitOptions{Name: "cli-test"}, io.Discard))
}

// writeDataFile writes the reflectivity of the default stack as a q_a two-column file.
func writeDataFile(t *testing.T) string {
	t.Helper()
	q := make([]float64, 120)
	for i := range q {
		q[i] = 0.02 + 0.4*float64(i)/float64(len(q)-1)
	}
	curve := domainsvc.NewParrattModel().Curve(entities.DefaultLayerStack(), q)

	var b strings.Builder
	b.WriteString("# q (1/A)  R\n")
	for i := range curve.X {
		fmt.Fprintf(&b, "%.8f\t%.10e\n", curve.X[i], curve.Y[i])
	}
	b.WriteString("not a number\n")

	path := filepath.Join(t.TempDir(), "scan.xy")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestRunInit(t *testing.T) {
	cc := newCommandContext(t)
	var out bytes.Buffer

	require.NoError(t, runInit(cc, InitOptions{Name: "wafer-07", Wavelength: 0.7093}, &out))
	assert.Contains(t, out.String(), `Initialized workspace "wafer-07"`)
	assert.Contains(t, out.String(), "0.7093 Å")

	err := runInit(cc, InitOptions{Name: "again"}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, runInit(cc, InitOptions{Name: "again", Force: true}, io.Discard))
	session, err := cc.Session()
	require.NoError(t, err)
	assert.Equal(t, "again", session.Name())
	assert.Equal(t, values.CuKAlpha1, session.Wavelength())
}

func TestRunInit_InvalidInstrument(t *testing.T) {
	cc := newCommandContext(t)
	assert.Error(t, runInit(cc, InitOptions{Name: "x", Wavelength: -1}, io.Discard))
	assert.Error(t, runInit(cc, InitOptions{Name: "x", BeamWidth: -0.1}, io.Discard))

	_, err := cc.Session()
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestLayerCommands(t *testing.T) {
	cc := newCommandContext(t)
	initWorkspace(t, cc)

	var out bytes.Buffer
	require.NoError(t, runLayerAdd(cc, dto.AddLayerRequest{Preset: "Au"}, &out))
	assert.Contains(t, out.String(), "Added Au")

	session, err := cc.Session()
	require.NoError(t, err)
	layers := session.Stack().Layers()
	require.Len(t, layers, 3)
	gold := layers[1]
	assert.Equal(t, "Au", gold.Material)

	out.Reset()
	require.NoError(t, runLayerList(cc, "table", &out))
	assert.Contains(t, out.String(), gold.ID.Short())
	assert.Contains(t, out.String(), "substrate")
	assert.Contains(t, out.String(), "Total thickness")

	out.Reset()
	require.NoError(t, runLayerSet(cc, gold.ID.Short(), "thickness", " 120.50", &out))
	assert.Equal(t, fmt.Sprintf("Set thickness of %s to 120.5\n", gold.ID.Short()), out.String())
	out.Reset()
	require.NoError(t, runLayerSet(cc, gold.ID.Short(), "material", "Au", &out))
	assert.Contains(t, out.String(), `to "Au"`)
	err = runLayerSet(cc, gold.ID.Short(), "density", "heavy", io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "density must be a finite number")
	require.NoError(t, runLayerMove(cc, 1, 0, io.Discard))

	session, err = cc.Session()
	require.NoError(t, err)
	layers = session.Stack().Layers()
	assert.Equal(t, gold.ID, layers[0].ID)
	assert.InDelta(t, 120.5, layers[0].Thickness, 1e-9)

	assert.Error(t, runLayerSet(cc, gold.ID.Short(), "colour", "red", io.Discard))
	assert.Error(t, runLayerMove(cc, 0, 2, io.Discard))

	substrate := layers[len(layers)-1]
	err = runLayerRemove(cc, substrate.ID.String(), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "substrate")

	require.NoError(t, runLayerRemove(cc, gold.ID.Short(), io.Discard))
	session, err = cc.Session()
	require.NoError(t, err)
	assert.Equal(t, 2, session.Stack().Len())
}

func TestLayerCommands_RejectNonFinite(t *testing.T) {
	cc := newCommandContext(t)
	initWorkspace(t, cc)

	session, err := cc.Session()
	require.NoError(t, err)
	oxide := session.Stack().Layers()[0]

	for _, v := range []string{"NaN", "Inf", "-Inf"} {
		assert.Error(t, runLayerSet(cc, oxide.ID.Short(), "thickness", v, io.Discard), v)
	}
	huge := 1e300
	nan := math.NaN()
	assert.Error(t, runLayerAdd(cc, dto.AddLayerRequest{Density: &nan}, io.Discard))
	require.NoError(t, runLayerAdd(cc, dto.AddLayerRequest{Thickness: &huge}, io.Discard))

	session, err = cc.Session()
	require.NoError(t, err)
	var out bytes.Buffer
	require.NotPanics(t, func() {
		require.NoError(t, writeProfile(&out, session.Profile(), "csv", 1))
	})
	lines := strings.Count(out.String(), "\n")
	assert.LessOrEqual(t, lines, domainsvc.MaxDepthSamples+1)
}

func TestPromptValidators(t *testing.T) {
	tests := []struct {
		input       string
		nonNegative bool
		positive    bool
	}{
		{"", false, true},
		{"0", true, false},
		{"2.5", true, true},
		{"-1", false, false},
		{"NaN", false, false},
		{"Inf", false, false},
		{"-Inf", false, false},
		{"abc", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.nonNegative, nonNegative(tt.input) == nil, "nonNegative")
			assert.Equal(t, tt.positive, optionalPositive(tt.input) == nil, "optionalPositive")
		})
	}
}

func TestLayerList_JSON(t *testing.T) {
	cc := newCommandContext(t)
	initWorkspace(t, cc)

	var out bytes.Buffer
	require.NoError(t, runLayerList(cc, "json", &out))

	var view struct {
		Layers         []map[string]any `json:"layers"`
		TotalThickness float64          `json:"total_thickness"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	assert.Len(t, view.Layers, 2)
	assert.Equal(t, "SiO2", view.Layers[0]["material"])
}

func TestLayerAddFlags_Request(t *testing.T) {
	cmd := &cobra.Command{Use: "add"}
	flags := layerAddFlags{Preset: "Cr", Thickness: 25, Density: 7, Roughness: 2}
	cmd.Flags().Float64Var(&flags.Thickness, "thickness", 50, "")
	cmd.Flags().Float64Var(&flags.Density, "density", 1, "")
	cmd.Flags().Float64Var(&flags.Roughness, "roughness", 3, "")
	require.NoError(t, cmd.Flags().Set("thickness", "25"))

	req := flags.request(cmd)
	assert.Equal(t, "Cr", req.Preset)
	require.NotNil(t, req.Thickness)
	assert.InDelta(t, 25.0, *req.Thickness, 1e-12)
	assert.Nil(t, req.Density)
	assert.Nil(t, req.Roughness)

	all := flags.request(nil)
	assert.NotNil(t, all.Density)
	assert.NotNil(t, all.Roughness)
}

func TestRunImport(t *testing.T) {
	cc := newCommandContext(t)
	initWorkspace(t, cc)
	path := writeDataFile(t)

	var out bytes.Buffer
	require.NoError(t, runImport(cc, path, ImportOptions{XCol: 0, YCol: 1}, &out))
	assert.Contains(t, out.String(), "Imported 120 points from scan.xy (1 dropped)")
	assert.Contains(t, out.String(), "(guessed)")

	session, err := cc.Session()
	require.NoError(t, err)
	assert.Equal(t, values.AxisQAngstrom, session.AxisUnit())
	require.NotNil(t, session.Measured())
	assert.Equal(t, 120, session.Measured().Len())
}

func TestRunImport_Errors(t *testing.T) {
	cc := newCommandContext(t)
	initWorkspace(t, cc)

	err := runImport(cc, filepath.Join(t.TempDir(), "missing.xy"), ImportOptions{XCol: 0, YCol: 1}, io.Discard)
	assert.Error(t, err)

	err = runImport(cc, writeDataFile(t), ImportOptions{Unit: "furlongs", XCol: 0, YCol: 1}, io.Discard)
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.xy")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o600))
	err = runImport(cc, empty, ImportOptions{XCol: 0, YCol: 1}, io.Discard)
	var parseErr *entities.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestInstrumentCommands(t *testing.T) {
	cc := newCommandContext(t)
	initWorkspace(t, cc)
	require.NoError(t, runImport(cc, writeDataFile(t), ImportOptions{Unit: "2theta", XCol: 0, YCol: 1}, io.Discard))

	before, err := cc.Session()
	require.NoError(t, err)
	q2theta := before.Measured().X[10]

	var out bytes.Buffer
	require.NoError(t, runSetUnit(cc, values.AxisTheta, &out))
	afterUnit, err := cc.Session()
	require.NoError(t, err)
	assert.Greater(t, afterUnit.Measured().X[10], q2theta)
	assert.Contains(t, out.String(), "q range: ")
	assert.Contains(t, out.String(), "X range: 0.02 – 0.42 θ (deg)")

	out.Reset()
	require.NoError(t, runSetWavelength(cc, 0.7093, &out))
	assert.Contains(t, out.String(), "0.7093")
	assert.Contains(t, out.String(), "X range: 0.02 – 0.42 θ (deg)", "raw angles survive re-conversion")
	afterWavelength, err := cc.Session()
	require.NoError(t, err)
	assert.Greater(t, afterWavelength.Measured().X[10], afterUnit.Measured().X[10])

	assert.Error(t, runSetWavelength(cc, 0, io.Discard))
}

func TestInstrumentCommands_WithoutData(t *testing.T) {
	cc := newCommandContext(t)
	initWorkspace(t, cc)

	var out bytes.Buffer
	require.NoError(t, runSetUnit(cc, values.AxisQNanometer, &out))
	assert.Equal(t, "X unit set to q (nm⁻¹)\n", out.String())
}

func TestRunAnalyze_NoData(t *testing.T) {
	cc := newCommandContext(t)
	initWorkspace(t, cc)

	opts := AnalyzeOptions{CommonOptions: DefaultCommonOptions()}
	err := runAnalyze(cc, opts, io.Discard)
	var noData *apperrors.NoDataError
	assert.ErrorAs(t, err, &noData)
}

func TestRunAnalyze_InvalidFormat(t *testing.T) {
	cc := newCommandContext(t)
	opts := AnalyzeOptions{CommonOptions: CommonOptions{Format: "sarif"}}
	err := runAnalyze(cc, opts, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRunAnalyze(t *testing.T) {
	cc := newCommandContext(t)
	initWorkspace(t, cc)
	require.NoError(t, runImport(cc, writeDataFile(t), ImportOptions{Unit: "q_a", XCol: 0, YCol: 1}, io.Discard))

	dir := t.TempDir()
	opts := AnalyzeOptions{
		CommonOptions: DefaultCommonOptions(),
		Expectations:  []string{"evaluations > 0", "chi2 >= 0"},
		CSVFile:       filepath.Join(dir, "fit.csv"),
		MetricsFile:   filepath.Join(dir, "xrrlab.prom"),
	}
	opts.Format = "json"

	var out bytes.Buffer
	require.NoError(t, runAnalyze(cc, opts, &out))

	var result map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "succeeded", result["state"])
	assert.NotEmpty(t, result["fitted_stack"])

	csv, err := os.ReadFile(opts.CSVFile)
	require.NoError(t, err)
	assert.Equal(t, 121, strings.Count(string(csv), "\n"))

	metrics, err := os.ReadFile(opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "xrrlab_runs_started_total 1")

	stored, err := cc.Container.Results().FindRecent(cc.Context, 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, values.RunStateSucceeded, stored[0].State)
}

func TestRunAnalyze_FailedExpectation(t *testing.T) {
	cc := newCommandContext(t)
	initWorkspace(t, cc)
	require.NoError(t, runImport(cc, writeDataFile(t), ImportOptions{Unit: "q_a", XCol: 0, YCol: 1}, io.Discard))

	opts := AnalyzeOptions{CommonOptions: DefaultCommonOptions(), Expectations: []string{"fom > 1000"}}
	opts.NoColor = true

	var out bytes.Buffer
	err := runAnalyze(cc, opts, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 expectations failed")
	assert.Contains(t, out.String(), "fom > 1000")
}

func TestRunEDPProfile(t *testing.T) {
	cc := newCommandContext(t)
	initWorkspace(t, cc)

	session, err := cc.Session()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeProfile(&out, session.Profile(), "csv", 1))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "z (A), rho (g/cm^3)", lines[0])
	assert.Equal(t, session.Profile().Len()+1, len(lines))

	out.Reset()
	require.NoError(t, writeProfile(&out, session.Profile(), "table", 25))
	assert.Contains(t, out.String(), "Interfaces (Å):")
}

func TestWritePresets(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writePresets(&out, entities.MaterialPresets(), "table"))
	assert.Contains(t, out.String(), "Gold")
	assert.Contains(t, out.String(), "19.32")

	out.Reset()
	require.Error(t, writePresets(&out, entities.MaterialPresets(), "xml"))
}

func TestRunRuns(t *testing.T) {
	cc := newCommandContext(t)

	var out bytes.Buffer
	require.NoError(t, runRuns(cc, RunsOptions{Format: "table", Limit: 20}, &out))
	assert.Contains(t, out.String(), "No stored analysis runs.")
	assert.Contains(t, out.String(), "--store badger")

	initWorkspace(t, cc)
	require.NoError(t, runImport(cc, writeDataFile(t), ImportOptions{Unit: "q_a", XCol: 0, YCol: 1}, io.Discard))
	opts := AnalyzeOptions{CommonOptions: DefaultCommonOptions(), Expectations: []string{"chi2 >= 0"}}
	require.NoError(t, runAnalyze(cc, opts, io.Discard))

	stored, err := cc.Container.Results().FindRecent(cc.Context, 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	id := stored[0].RunID.String()

	out.Reset()
	require.NoError(t, runRuns(cc, RunsOptions{Format: "table", Limit: 20}, &out))
	assert.Contains(t, out.String(), "RUN ID")
	assert.Contains(t, out.String(), id)
	assert.Contains(t, out.String(), "succeeded")
	assert.Contains(t, out.String(), "1/1 passed")

	out.Reset()
	require.NoError(t, runRuns(cc, RunsOptions{Format: "json", Since: time.Hour}, &out))
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, id, listed[0]["run_id"])

	err = runRuns(cc, RunsOptions{Format: "table", Since: -time.Hour}, io.Discard)
	require.Error(t, err)

	out.Reset()
	show := DefaultCommonOptions()
	show.NoColor = true
	require.NoError(t, runShowRun(cc, id, show, &out))
	assert.Contains(t, out.String(), "Run: "+id)
}

func TestRunShowRun_Errors(t *testing.T) {
	cc := newCommandContext(t)

	err := runShowRun(cc, values.NewRunID().String(), DefaultCommonOptions(), io.Discard)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	err = runShowRun(cc, "not-a-run", DefaultCommonOptions(), io.Discard)
	require.Error(t, err)
}

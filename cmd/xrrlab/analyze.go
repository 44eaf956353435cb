package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/xrrlab/internal/application/dto"
	"github.com/reglet-dev/xrrlab/internal/application/ports"
	"github.com/reglet-dev/xrrlab/internal/domain/execution"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/output"
)

// AnalyzeOptions configure the analyze command.
type AnalyzeOptions struct {
	CommonOptions
	Expectations []string
	CSVFile      string
	MetricsFile  string
}

var analyzeOpts = AnalyzeOptions{CommonOptions: DefaultCommonOptions()}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fit the layer stack to the measured curve",
	Long: `Run the analysis pipeline on the imported data: a coarse thickness search seeded
by the Fourier spectrum, followed by a least-squares refinement of thickness,
density and roughness of every layer. The report lists the fitted stack and the
fit quality (chi², figure of merit, mean absolute error of log10 intensity).

Expectations are boolean expressions over the result, for example
  fom > 95
  thickness("SiO2") > 10 && thickness("SiO2") < 20
A failed expectation makes the command exit non-zero.`,
	Example: `  xrrlab analyze
  xrrlab analyze --format json -o fit.json
  xrrlab analyze --expect 'fom > 90' --csv fit.csv
  xrrlab analyze --format latex --timeout 30s`,
	Args: cobra.NoArgs,
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, _ []string) error {
		return runAnalyze(cc, analyzeOpts, cmd.OutOrStdout())
	}),
}

func init() {
	analyzeOpts.RegisterFlags(analyzeCmd, output.NewFormatterFactory().SupportedFormats())
	analyzeCmd.Flags().StringArrayVar(&analyzeOpts.Expectations, "expect", nil,
		"expectation expression evaluated against the result (repeatable)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.CSVFile, "csv", "",
		"also write measured, calculated and residual intensities to this CSV file")
	analyzeCmd.Flags().StringVar(&analyzeOpts.MetricsFile, "metrics-file", "",
		"write Prometheus metrics to this textfile (default from system config)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cc *CommandContext, opts AnalyzeOptions, stdout io.Writer) error {
	factory := cc.Container.Formatters()
	if err := opts.ValidateFlags(factory.SupportedFormats()); err != nil {
		return err
	}

	session, err := cc.Session()
	if err != nil {
		return err
	}

	ctx, cancel := opts.ApplyToContext(cc.Context)
	defer cancel()

	result, runErr := session.AnalyzeAndWait(ctx, dto.AnalyzeRequest{Expectations: opts.Expectations})
	if result == nil {
		return runErr
	}
	if result.State.IsActive() {
		// The deadline expired mid-stage; the run fails at its next stage boundary.
		cc.Logger.Warn("analysis interrupted, waiting for the current stage", "error", runErr)
		result, runErr = cc.Container.Pipeline().Wait(context.Background())
	}

	w, closeOut, err := opts.OpenWriter(stdout)
	if err != nil {
		return err
	}
	defer func() { _ = closeOut() }()

	formatter, err := factory.Create(opts.Format, w, ports.FormatterOptions{Indent: true, Color: opts.Color()})
	if err != nil {
		return err
	}
	if err := formatter.Format(result); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if opts.CSVFile != "" {
		if err := writeCSVFile(opts.CSVFile, result); err != nil {
			return err
		}
		cc.Logger.Info("wrote fit data", "file", opts.CSVFile)
	}

	metricsFile := opts.MetricsFile
	if metricsFile == "" {
		metricsFile = cc.Container.SystemConfig().Metrics.Textfile
	}
	if metricsFile != "" {
		if err := cc.Container.Metrics().WriteTextfile(metricsFile); err != nil {
			cc.Logger.Warn("failed to write metrics", "file", metricsFile, "error", err)
		}
	}

	return analysisError(result, runErr)
}

func writeCSVFile(path string, result *execution.AnalysisResult) error {
	//nolint:gosec // G304: User-controlled output file path is intentional
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	if err := output.NewCSVFormatter(f).Format(result); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// analysisError turns a failed run or a failed expectation into the command's error.
func analysisError(result *execution.AnalysisResult, runErr error) error {
	if runErr != nil {
		return fmt.Errorf("analysis failed: %w", runErr)
	}
	if result.Error != "" {
		return fmt.Errorf("analysis failed: %s", result.Error)
	}

	if !result.ExpectationsPassed() {
		return fmt.Errorf("%d of %d expectations failed", result.FailedExpectations(), len(result.Expectations))
	}
	return nil
}

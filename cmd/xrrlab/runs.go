package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/xrrlab/internal/application/ports"
	"github.com/reglet-dev/xrrlab/internal/domain/execution"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/output"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/system"
)

// RunsOptions configure the runs listing.
type RunsOptions struct {
	Format string
	Limit  int
	Since  time.Duration
}

// runSummary is one row of the runs listing.
type runSummary struct {
	RunID        values.RunID    `json:"run_id" yaml:"run_id"`
	StartTime    time.Time       `json:"start_time" yaml:"start_time"`
	State        values.RunState `json:"state" yaml:"state"`
	Duration     time.Duration   `json:"duration" yaml:"duration"`
	Chi2         *float64        `json:"chi2,omitempty" yaml:"chi2,omitempty"`
	FOM          *float64        `json:"fom,omitempty" yaml:"fom,omitempty"`
	Expectations string          `json:"expectations,omitempty" yaml:"expectations,omitempty"`
	Error        string          `json:"error,omitempty" yaml:"error,omitempty"`
}

var (
	runsOpts    = RunsOptions{Format: "table", Limit: 20}
	runShowOpts = DefaultCommonOptions()
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored analysis runs",
	Long: `List the results of earlier analysis runs, newest first. With the file store
results live only for the duration of one command; use --store badger to keep
them between invocations.`,
	Example: `  xrrlab runs
  xrrlab runs --since 24h --format json
  xrrlab --store badger runs --limit 5`,
	Args: cobra.NoArgs,
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, _ []string) error {
		return runRuns(cc, runsOpts, cmd.OutOrStdout())
	}),
}

var runShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full result of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, args []string) error {
		return runShowRun(cc, args[0], runShowOpts, cmd.OutOrStdout())
	}),
}

func init() {
	runsCmd.Flags().StringVar(&runsOpts.Format, "format", runsOpts.Format, fmt.Sprintf("Output format: %v", listFormats))
	runsCmd.Flags().IntVar(&runsOpts.Limit, "limit", runsOpts.Limit, "maximum number of runs to list (0 = all)")
	runsCmd.Flags().DurationVar(&runsOpts.Since, "since", 0, "only list runs started within this duration, e.g. 24h")
	runShowOpts.RegisterFlags(runShowCmd, output.NewFormatterFactory().SupportedFormats())
	runsCmd.AddCommand(runShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cc *CommandContext, opts RunsOptions, out io.Writer) error {
	if opts.Since < 0 {
		return fmt.Errorf("--since must be positive")
	}

	repo := cc.Container.Results()
	var (
		results []*execution.AnalysisResult
		err     error
	)
	if opts.Since > 0 {
		now := time.Now()
		results, err = repo.FindBetween(cc.Context, now.Add(-opts.Since), now)
		if opts.Limit > 0 && len(results) > opts.Limit {
			results = results[:opts.Limit]
		}
	} else {
		results, err = repo.FindRecent(cc.Context, opts.Limit)
	}
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	summaries := make([]runSummary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, summarize(r))
	}

	if opts.Format != "table" {
		return writeStructured(out, summaries, opts.Format)
	}
	if len(summaries) == 0 {
		msg := "No stored analysis runs."
		if cc.Container.SystemConfig().Storage.Backend != system.StorageBadger {
			msg += " Results are kept between invocations only with --store badger."
		}
		_, err := fmt.Fprintln(out, msg)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tSTATE\tDURATION\tCHI²\tFOM (%)\tEXPECTATIONS")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.RunID, s.StartTime.Format(time.RFC3339), s.State, s.Duration.Round(time.Millisecond),
			optionalFloat(s.Chi2, "%.3e"), optionalFloat(s.FOM, "%.2f"), dashIfEmpty(s.Expectations))
	}
	return tw.Flush()
}

func runShowRun(cc *CommandContext, ref string, opts CommonOptions, out io.Writer) error {
	factory := cc.Container.Formatters()
	if err := opts.ValidateFlags(factory.SupportedFormats()); err != nil {
		return err
	}
	id, err := values.ParseRunID(ref)
	if err != nil {
		return err
	}
	result, err := cc.Container.Results().FindByID(cc.Context, id)
	if err != nil {
		return err
	}

	w, closeOut, err := opts.OpenWriter(out)
	if err != nil {
		return err
	}
	defer func() { _ = closeOut() }()

	formatter, err := factory.Create(opts.Format, w, ports.FormatterOptions{Indent: true, Color: opts.Color()})
	if err != nil {
		return err
	}
	return formatter.Format(result)
}

func summarize(r *execution.AnalysisResult) runSummary {
	s := runSummary{
		RunID:     r.RunID,
		StartTime: r.StartTime,
		State:     r.State,
		Duration:  r.Duration,
		Error:     r.Error,
	}
	if r.Metrics != nil {
		chi2, fom := r.Metrics.Chi2, r.Metrics.FOM
		s.Chi2, s.FOM = &chi2, &fom
	}
	if n := len(r.Expectations); n > 0 {
		s.Expectations = fmt.Sprintf("%d/%d passed", n-r.FailedExpectations(), n)
	}
	return s
}

func optionalFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

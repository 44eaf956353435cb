package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/execution"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// TableFormatter formats analysis results as a human-readable report.
type TableFormatter struct {
	writer      io.Writer
	EnableColor bool
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{
		writer:      w,
		EnableColor: true, // Default to true, caller can disable
	}
}

// colorize returns the string wrapped in ANSI color codes if enabled.
func (f *TableFormatter) colorize(text, code string) string {
	if !f.EnableColor {
		return text
	}
	return code + text + colorReset
}

// Format writes the result: run header, fit quality, parameter table, expectations and summary.
//
//nolint:errcheck // Table formatting errors are non-critical (best-effort terminal output)
func (f *TableFormatter) Format(result *execution.AnalysisResult) error {
	rule := f.colorize(strings.Repeat("─", 72), colorGray)
	symbol, color := f.getStateInfo(result.State)

	fmt.Fprintln(f.writer, rule)
	if !result.RunID.IsZero() {
		fmt.Fprintf(f.writer, "Run: %s\n", f.colorize(result.RunID.String(), colorBold))
	}
	fmt.Fprintf(f.writer, "State: %s %s\n", f.colorize(symbol, color), f.colorize(string(result.State), color))
	if !result.StartTime.IsZero() {
		fmt.Fprintf(f.writer, "Started: %s\n", result.StartTime.Format(time.RFC3339))
	}
	if result.State.IsTerminal() {
		fmt.Fprintf(f.writer, "Duration: %s\n", result.Duration.Round(time.Millisecond))
	}
	if result.Error != "" {
		fmt.Fprintf(f.writer, "%s: %s\n", f.colorize("Error", colorRed), result.Error)
	}
	fmt.Fprintln(f.writer)

	if result.Metrics != nil {
		f.formatMetrics(result)
	}
	if len(result.FittedStack) > 0 {
		f.formatStack(result.FittedStack)
	}
	if len(result.Expectations) > 0 {
		f.formatExpectations(result.Expectations)
	}
	if text := Methodology(result); text != "" && result.Metrics != nil {
		fmt.Fprintln(f.writer, f.colorize("Summary:", colorBold))
		fmt.Fprintln(f.writer, text)
		fmt.Fprintln(f.writer, Results(result))
		fmt.Fprintln(f.writer)
	}
	fmt.Fprintln(f.writer, rule)
	return nil
}

//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatMetrics(result *execution.AnalysisResult) {
	m := result.Metrics
	fmt.Fprintln(f.writer, f.colorize("Fit quality:", colorBold))
	fmt.Fprintf(f.writer, "  χ²:  %.3e\n", m.Chi2)
	fmt.Fprintf(f.writer, "  FOM: %s\n", f.colorize(fmt.Sprintf("%.2f%%", m.FOM), fomColor(m.FOM)))
	fmt.Fprintf(f.writer, "  MAE: %.3e\n", m.MAE)
	if result.FourierThickness > 0 {
		fmt.Fprintf(f.writer, "  Fourier thickness: %.1f Å\n", result.FourierThickness)
	}
	if result.Evaluations > 0 {
		fmt.Fprintf(f.writer, "  Evaluations: %d\n", result.Evaluations)
	}
	fmt.Fprintln(f.writer)
}

//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatStack(layers []entities.MaterialLayer) {
	fmt.Fprintln(f.writer, f.colorize("Fitted stack:", colorBold))
	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "  Material\tThickness (Å)\tDensity (g/cm³)\tRoughness (Å)\t")
	for i, l := range layers {
		fmt.Fprintf(tw, "  %s\t%s\t%.2f\t%.2f\t\n", l.Material, thicknessCell(layers, i, "∞"), l.Density, l.Roughness)
	}
	tw.Flush()
	fmt.Fprintln(f.writer)
}

//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatExpectations(results []execution.ExpectationResult) {
	fmt.Fprintln(f.writer, f.colorize("Expectations:", colorBold))
	for _, exp := range results {
		if exp.Passed {
			fmt.Fprintf(f.writer, "  %s %s\n", f.colorize("✓", colorGreen), exp.Expression)
			continue
		}
		fmt.Fprintf(f.writer, "  %s %s\n", f.colorize("✗", colorRed), exp.Expression)
		if exp.Message != "" {
			fmt.Fprintf(f.writer, "    %s\n", f.colorize(exp.Message, colorYellow))
		}
	}
	fmt.Fprintln(f.writer)
}

// getStateInfo returns a symbol and color for the given state.
func (f *TableFormatter) getStateInfo(state values.RunState) (string, string) {
	switch state {
	case values.RunStateSucceeded:
		return "✓", colorGreen
	case values.RunStateFailed:
		return "✗", colorRed
	case values.RunStateInferring, values.RunStateRefining:
		return "…", colorCyan
	default:
		return "○", colorGray
	}
}

func fomColor(fom float64) string {
	switch {
	case fom >= 90:
		return colorGreen
	case fom >= 70:
		return colorYellow
	default:
		return colorRed
	}
}

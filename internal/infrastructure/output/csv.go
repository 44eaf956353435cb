package output

import (
	"errors"
	"fmt"
	"io"

	"github.com/reglet-dev/xrrlab/internal/domain/execution"
)

// CSVHeader is the first line of a curve export.
const CSVHeader = "Q (A^-1), Measured Intensity, Calculated Intensity, Residual"

// CSVFormatter writes the fitted curve point by point: q, measured, calculated and residual.
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter.
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// Format writes one row per measured point. Only succeeded results carry a fit.
func (f *CSVFormatter) Format(result *execution.AnalysisResult) error {
	if result.FitCurve == nil || result.Residual == nil {
		return errors.New("result has no fitted curve to export")
	}
	fit, res := result.FitCurve, result.Residual
	if fit.Len() != res.Len() {
		return fmt.Errorf("fit and residual differ in length: %d vs %d", fit.Len(), res.Len())
	}
	measured := func(i int) float64 { return res.Y[i] + fit.Y[i] }
	if m := result.Measured; m != nil && m.Len() == fit.Len() {
		measured = func(i int) float64 { return m.Y[i] }
	}

	if _, err := fmt.Fprintln(f.writer, CSVHeader); err != nil {
		return err
	}
	for i := range fit.X {
		if _, err := fmt.Fprintf(f.writer, "%.5e,%.5e,%.5e,%.5e\n", fit.X[i], measured(i), fit.Y[i], res.Y[i]); err != nil {
			return err
		}
	}
	return nil
}

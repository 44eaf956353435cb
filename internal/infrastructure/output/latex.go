package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/reglet-dev/xrrlab/internal/domain/execution"
)

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
)

// LaTeXFormatter writes the fitted parameters as a LaTeX table.
type LaTeXFormatter struct {
	writer io.Writer
}

// NewLaTeXFormatter creates a new LaTeX formatter.
func NewLaTeXFormatter(w io.Writer) *LaTeXFormatter {
	return &LaTeXFormatter{writer: w}
}

// Format writes a table environment with one row per fitted layer, substrate last.
func (f *LaTeXFormatter) Format(result *execution.AnalysisResult) error {
	layers := result.FittedStack
	if len(layers) == 0 {
		return errors.New("result has no fitted stack to export")
	}

	var b strings.Builder
	b.WriteString("\\begin{table}[h]\n\\centering\n\\begin{tabular}{l c c c}\n\\hline\n")
	b.WriteString("Material & Thickness (\\AA) & Density (g/cm$^3$) & Roughness (\\AA) \\\\\n\\hline\n")
	for i, l := range layers {
		fmt.Fprintf(&b, "%s & %s & %.2f & %.2f \\\\\n",
			latexEscaper.Replace(l.Material), thicknessCell(layers, i, "$\\infty$"), l.Density, l.Roughness)
	}
	b.WriteString("\\hline\n\\end{tabular}\n\\end{table}\n")

	_, err := io.WriteString(f.writer, b.String())
	return err
}

package output

import (
	"encoding/json"
	"io"

	"github.com/reglet-dev/xrrlab/internal/domain/execution"
)

// JSONFormatter formats analysis results as JSON.
type JSONFormatter struct {
	writer io.Writer
	indent bool
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(w io.Writer, indent bool) *JSONFormatter {
	return &JSONFormatter{
		writer: w,
		indent: indent,
	}
}

// Format writes the result as a single JSON document followed by a newline.
func (f *JSONFormatter) Format(result *execution.AnalysisResult) error {
	enc := json.NewEncoder(f.writer)
	if f.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

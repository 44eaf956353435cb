package services

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
)

var fieldSeparator = regexp.MustCompile(`[\s,;]+`)

// ParsedColumns holds the X/Y columns selected from a delimited text import.
type ParsedColumns struct {
	X       []float64
	Y       []float64
	Rows    int // data rows examined, excluding comments and blank lines
	Dropped int // rows discarded as unparsable, ragged or non-finite
}

// DataParser reads whitespace, comma or semicolon separated numeric text.
type DataParser struct{}

// NewDataParser creates a data parser.
func NewDataParser() *DataParser {
	return &DataParser{}
}

// Parse extracts the selected columns. Lines starting with '#' and blank lines are
// ignored. Rows with fewer than two numeric fields, a missing selected column or a
// non-finite value are dropped. A ParseError is returned only if no row survives.
func (p *DataParser) Parse(r io.Reader, source string, columns entities.ColumnMap) (*ParsedColumns, error) {
	if err := columns.Validate(); err != nil {
		return nil, err
	}

	out := &ParsedColumns{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		out.Rows++

		x, y, ok := parseRow(text, columns)
		if !ok {
			out.Dropped++
			continue
		}
		out.X = append(out.X, x)
		out.Y = append(out.Y, y)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}

	if len(out.X) == 0 {
		return nil, &entities.ParseError{
			Source:  source,
			Line:    line,
			Dropped: out.Dropped,
			Message: "no numeric rows with the selected columns",
		}
	}
	return out, nil
}

func parseRow(text string, columns entities.ColumnMap) (x, y float64, ok bool) {
	fields := fieldSeparator.Split(text, -1)
	nums := make([]float64, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, 0, false
		}
		nums = append(nums, v)
	}
	if len(nums) < 2 || columns.X >= len(nums) || columns.Y >= len(nums) {
		return 0, 0, false
	}
	x, y = nums[columns.X], nums[columns.Y]
	if !isFinite(x) || !isFinite(y) {
		return 0, 0, false
	}
	return x, y, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

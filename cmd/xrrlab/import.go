package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/xrrlab/internal/application/dto"
	"github.com/reglet-dev/xrrlab/internal/application/services"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// ImportOptions select how a data file is read.
type ImportOptions struct {
	Unit string
	XCol int
	YCol int
}

var importOpts = ImportOptions{XCol: 0, YCol: 1}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a measured reflectivity curve",
	Long: `Read a delimited text file (comma, tab, semicolon or whitespace separated) and
replace the measured curve of the workspace. Lines starting with '#' are
comments and rows that cannot be parsed are dropped. Without --unit the X unit
is guessed from the data range.

Units: 2theta, theta (degrees), q_a (Å⁻¹), q_nm (nm⁻¹).`,
	Example: `  xrrlab import scan.xy
  xrrlab import scan.csv --unit q_nm --x-col 1 --y-col 3`,
	Args: cobra.ExactArgs(1),
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, args []string) error {
		return runImport(cc, args[0], importOpts, cmd.OutOrStdout())
	}),
}

func init() {
	importCmd.Flags().StringVar(&importOpts.Unit, "unit", "", "unit of the X column (default: guessed)")
	importCmd.Flags().IntVar(&importOpts.XCol, "x-col", importOpts.XCol, "zero-based X column")
	importCmd.Flags().IntVar(&importOpts.YCol, "y-col", importOpts.YCol, "zero-based intensity column")
	rootCmd.AddCommand(importCmd)
}

func runImport(cc *CommandContext, path string, opts ImportOptions, out io.Writer) error {
	req := dto.ImportRequest{
		Source:  filepath.Base(path),
		Columns: entities.ColumnMap{X: opts.XCol, Y: opts.YCol},
	}
	if opts.Unit != "" {
		unit, err := values.ParseAxisUnit(opts.Unit)
		if err != nil {
			return err
		}
		req.Unit = unit
	}

	//nolint:gosec // G304: data file path is chosen by the user
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var resp *dto.ImportResponse
	err = cc.Mutate(func(s *services.Session) error {
		resp, err = s.Import(f, req)
		return err
	})
	if err != nil {
		return err
	}

	q := resp.Quality
	unit := resp.Unit.Label()
	if resp.Guessed {
		unit += " (guessed)"
	}
	_, err = fmt.Fprintf(out,
		"Imported %d points from %s (%d dropped)\nX unit: %s\nq range: %.4f – %.4f Å⁻¹\nDynamic range: %.1f decades\n",
		q.Points, req.Source, q.Dropped, unit, q.QMin, q.QMax, q.DynamicRange)
	return err
}

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/xrrlab/internal/application/services"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

var unitCmd = &cobra.Command{
	Use:       "unit <unit>",
	Short:     "Reinterpret the X column of the imported data",
	Long:      `Set the unit of the imported X column and re-convert the stored data to q.`,
	Example:   "  xrrlab unit theta",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"2theta", "theta", "q_a", "q_nm"},
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, args []string) error {
		unit, err := values.ParseAxisUnit(args[0])
		if err != nil {
			return err
		}
		return runSetUnit(cc, unit, cmd.OutOrStdout())
	}),
}

var wavelengthCmd = &cobra.Command{
	Use:     "wavelength <Å>",
	Short:   "Set the X-ray wavelength",
	Long:    `Set the instrument wavelength in ångström and re-convert angle data to q.`,
	Example: "  xrrlab wavelength 1.5406",
	Args:    cobra.ExactArgs(1),
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, args []string) error {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid wavelength %q", args[0])
		}
		return runSetWavelength(cc, values.Wavelength(v), cmd.OutOrStdout())
	}),
}

func init() {
	rootCmd.AddCommand(unitCmd, wavelengthCmd)
}

func runSetUnit(cc *CommandContext, unit values.AxisUnit, out io.Writer) error {
	var session *services.Session
	err := cc.Mutate(func(s *services.Session) error {
		session = s
		return s.SetAxisUnit(unit)
	})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "X unit set to %s\n", unit.Label()); err != nil {
		return err
	}
	return writeDataRange(out, session)
}

func runSetWavelength(cc *CommandContext, w values.Wavelength, out io.Writer) error {
	var session *services.Session
	err := cc.Mutate(func(s *services.Session) error {
		session = s
		return s.SetWavelength(w)
	})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "Wavelength set to %s\n", w); err != nil {
		return err
	}
	return writeDataRange(out, session)
}

// writeDataRange reports the re-converted q range alongside the same range in the X unit.
func writeDataRange(out io.Writer, s *services.Session) error {
	q, ok := s.Quality()
	if !ok {
		return nil
	}
	lo, err := s.ToAxis(q.QMin)
	if err != nil {
		return err
	}
	hi, err := s.ToAxis(q.QMax)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "q range: %.4f – %.4f Å⁻¹\nX range: %.4g – %.4g %s\n",
		q.QMin, q.QMax, lo, hi, s.AxisUnit().Label())
	return err
}

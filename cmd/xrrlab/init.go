package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// InitOptions configure a new workspace.
type InitOptions struct {
	Name        string
	Wavelength  float64
	BeamWidth   float64
	Force       bool
	Interactive bool
}

var initOpts InitOptions

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a workspace with the default Si/SiO2 stack",
	Long: `Create a new workspace document. The instrument defaults come from the system
config; --wavelength and --beam-width override them. An existing workspace is
only replaced with --force.`,
	Example: `  xrrlab init
  xrrlab init --name wafer-07 --wavelength 0.7093
  xrrlab init -i`,
	Args: cobra.NoArgs,
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, _ []string) error {
		opts := initOpts
		if opts.Name == "" {
			opts.Name = cc.Container.Name()
		}
		if opts.Interactive {
			if err := promptInit(&opts); err != nil {
				return err
			}
		}
		return runInit(cc, opts, cmd.OutOrStdout())
	}),
}

func init() {
	initCmd.Flags().Float64Var(&initOpts.Wavelength, "wavelength", 0, "X-ray wavelength in Å (default from system config)")
	initCmd.Flags().Float64Var(&initOpts.BeamWidth, "beam-width", 0, "beam width in mm (default from system config)")
	initCmd.Flags().BoolVar(&initOpts.Force, "force", false, "replace an existing workspace")
	initCmd.Flags().BoolVarP(&initOpts.Interactive, "interactive", "i", false, "prompt for the workspace settings")

	rootCmd.AddCommand(initCmd)
}

func runInit(cc *CommandContext, opts InitOptions, out io.Writer) error {
	exists, err := cc.Container.Workspaces().Exists(cc.Context)
	if err != nil {
		return err
	}
	if exists && !opts.Force {
		return errors.New("workspace already exists (use --force to replace it)")
	}

	ws := cc.Container.NewWorkspace(opts.Name)
	if opts.Wavelength != 0 {
		w, err := values.NewWavelength(opts.Wavelength)
		if err != nil {
			return err
		}
		ws.Wavelength = w
	}
	if opts.BeamWidth < 0 {
		return fmt.Errorf("beam width must not be negative, got %g", opts.BeamWidth)
	}
	if opts.BeamWidth > 0 {
		ws.BeamWidth = opts.BeamWidth
	}

	session, err := cc.Container.NewSession(ws)
	if err != nil {
		return err
	}
	if err := session.Save(cc.Context); err != nil {
		return err
	}

	fmt.Fprintf(out, "Initialized workspace %q (wavelength %s, %d layers)\n",
		ws.Name, ws.Wavelength, ws.Stack.Len())
	return nil
}

func promptInit(opts *InitOptions) error {
	wavelength := ""
	if opts.Wavelength > 0 {
		wavelength = strconv.FormatFloat(opts.Wavelength, 'f', -1, 64)
	}

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Workspace name").
			Value(&opts.Name),
		huh.NewInput().
			Title("Wavelength (Å)").
			Description("Leave empty for the configured default (Cu Kα1 = 1.5406 Å)").
			Value(&wavelength).
			Validate(optionalPositive),
	))
	if err := form.Run(); err != nil {
		return err
	}

	if wavelength != "" {
		v, err := strconv.ParseFloat(wavelength, 64)
		if err != nil {
			return err
		}
		opts.Wavelength = v
	}
	return nil
}

// optionalPositive accepts an empty string or a positive number.
func optionalPositive(s string) error {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}

package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/reglet-dev/xrrlab/internal/application/dto"
	"github.com/reglet-dev/xrrlab/internal/application/services"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
)

var (
	layerListFormat string
	layerAdd        layerAddFlags
)

type layerAddFlags struct {
	Preset      string
	Material    string
	Thickness   float64
	Density     float64
	Roughness   float64
	Interactive bool
}

var layerCmd = &cobra.Command{
	Use:   "layer",
	Short: "Inspect and edit the layer stack",
	Long: `Layers are listed top to bottom; the last row is the substrate, which cannot be
removed or moved. Commands that take <id> accept a full layer ID or any unique
prefix of it, as printed by 'xrrlab layer list'.`,
}

var layerListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the layers of the stack",
	Args:    cobra.NoArgs,
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, _ []string) error {
		return runLayerList(cc, layerListFormat, cmd.OutOrStdout())
	}),
}

var layerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an overlayer directly above the substrate",
	Example: `  xrrlab layer add --preset Au
  xrrlab layer add --preset SiO2 --thickness 12.5
  xrrlab layer add --material "TiN" --thickness 80 --density 5.22 --roughness 4
  xrrlab layer add -i`,
	Args: cobra.NoArgs,
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, _ []string) error {
		if layerAdd.Interactive {
			if err := promptLayer(&layerAdd); err != nil {
				return err
			}
			return runLayerAdd(cc, layerAdd.request(nil), cmd.OutOrStdout())
		}
		return runLayerAdd(cc, layerAdd.request(cmd), cmd.OutOrStdout())
	}),
}

var layerSetCmd = &cobra.Command{
	Use:   "set <id> <field> <value>",
	Short: "Set material, thickness, density or roughness of a layer",
	Example: `  xrrlab layer set 3f2a thickness 42.1
  xrrlab layer set 3f2a material "Ta2O5"`,
	Args: cobra.ExactArgs(3),
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, args []string) error {
		return runLayerSet(cc, args[0], args[1], args[2], cmd.OutOrStdout())
	}),
}

var layerRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove an overlayer",
	Args:    cobra.ExactArgs(1),
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, args []string) error {
		return runLayerRemove(cc, args[0], cmd.OutOrStdout())
	}),
}

var layerMoveCmd = &cobra.Command{
	Use:   "mv <from> <to>",
	Short: "Move an overlayer to another position (0 is the top)",
	Args:  cobra.ExactArgs(2),
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, args []string) error {
		from, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid position %q", args[0])
		}
		to, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid position %q", args[1])
		}
		return runLayerMove(cc, from, to, cmd.OutOrStdout())
	}),
}

func init() {
	layerListCmd.Flags().StringVar(&layerListFormat, "format", "table", fmt.Sprintf("Output format: %v", listFormats))

	f := layerAddCmd.Flags()
	f.StringVar(&layerAdd.Preset, "preset", "", "material preset by name or formula (see 'xrrlab materials')")
	f.StringVar(&layerAdd.Material, "material", "", "material label")
	f.Float64Var(&layerAdd.Thickness, "thickness", entities.DefaultLayerThickness, "thickness in Å")
	f.Float64Var(&layerAdd.Density, "density", entities.DefaultLayerDensity, "mass density in g/cm³")
	f.Float64Var(&layerAdd.Roughness, "roughness", entities.DefaultLayerRoughness, "top-interface roughness in Å")
	f.BoolVarP(&layerAdd.Interactive, "interactive", "i", false, "prompt for the layer")

	layerCmd.AddCommand(layerListCmd, layerAddCmd, layerSetCmd, layerRemoveCmd, layerMoveCmd)
	rootCmd.AddCommand(layerCmd)
}

// request builds an AddLayerRequest. Numeric fields are only sent when set
// explicitly on cmd, so presets keep their own values; a nil cmd sends all of them.
func (f layerAddFlags) request(cmd *cobra.Command) dto.AddLayerRequest {
	changed := func(name string) bool {
		return cmd == nil || cmd.Flags().Changed(name)
	}
	req := dto.AddLayerRequest{Preset: f.Preset, Material: f.Material}
	if changed("thickness") {
		req.Thickness = &f.Thickness
	}
	if changed("density") {
		req.Density = &f.Density
	}
	if changed("roughness") {
		req.Roughness = &f.Roughness
	}
	return req
}

func runLayerList(cc *CommandContext, format string, out io.Writer) error {
	session, err := cc.Session()
	if err != nil {
		return err
	}
	return writeStack(out, session.StackView(), format)
}

func runLayerAdd(cc *CommandContext, req dto.AddLayerRequest, out io.Writer) error {
	var added entities.MaterialLayer
	err := cc.Mutate(func(s *services.Session) error {
		var err error
		added, err = s.AddLayer(req)
		return err
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Added %s (%s): %.2f Å, %.3f g/cm³, σ %.2f Å\n",
		added.Material, added.ID.Short(), added.Thickness, added.Density, added.Roughness)
	return err
}

func runLayerSet(cc *CommandContext, ref, fieldName, value string, out io.Writer) error {
	field, err := entities.ParseLayerField(fieldName)
	if err != nil {
		return err
	}
	var parsed any = value
	shown := fmt.Sprintf("%q", value)
	if field.IsNumeric() {
		v, perr := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if perr != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a finite number, got %q", field, value)
		}
		parsed, shown = v, strconv.FormatFloat(v, 'g', -1, 64)
	}
	err = cc.Mutate(func(s *services.Session) error {
		return s.UpdateLayer(ref, field, parsed)
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Set %s of %s to %s\n", field, ref, shown)
	return err
}

func runLayerRemove(cc *CommandContext, ref string, out io.Writer) error {
	err := cc.Mutate(func(s *services.Session) error {
		if !s.RemoveLayer(ref) {
			return fmt.Errorf("cannot remove %q: unknown layer or substrate", ref)
		}
		return nil
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Removed %s\n", ref)
	return err
}

func runLayerMove(cc *CommandContext, from, to int, out io.Writer) error {
	err := cc.Mutate(func(s *services.Session) error {
		if !s.ReorderLayers(from, to) {
			return fmt.Errorf("cannot move layer %d to %d: positions must name overlayers", from, to)
		}
		return nil
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Moved layer %d to %d\n", from, to)
	return err
}

const customPreset = "custom"

func promptLayer(f *layerAddFlags) error {
	options := []huh.Option[string]{huh.NewOption("Custom material", customPreset)}
	for _, p := range entities.MaterialPresets() {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", p.Name, p.Formula), p.Formula))
	}

	preset := customPreset
	if err := huh.NewSelect[string]().
		Title("Material").
		Options(options...).
		Value(&preset).
		Run(); err != nil {
		return err
	}

	layer := entities.NewDefaultLayer()
	f.Preset = ""
	if p, ok := entities.FindPreset(preset); ok {
		layer = p.NewLayer()
	}

	material := layer.Material
	thickness := strconv.FormatFloat(layer.Thickness, 'f', -1, 64)
	density := strconv.FormatFloat(layer.Density, 'f', -1, 64)
	roughness := strconv.FormatFloat(layer.Roughness, 'f', -1, 64)

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Label").Value(&material),
		huh.NewInput().Title("Thickness (Å)").Value(&thickness).Validate(nonNegative),
		huh.NewInput().Title("Density (g/cm³)").Value(&density).Validate(nonNegative),
		huh.NewInput().Title("Roughness (Å)").Value(&roughness).Validate(nonNegative),
	))
	if err := form.Run(); err != nil {
		return err
	}

	f.Material = material
	f.Thickness, _ = strconv.ParseFloat(thickness, 64)
	f.Density, _ = strconv.ParseFloat(density, 64)
	f.Roughness, _ = strconv.ParseFloat(roughness, 64)
	return nil
}

func nonNegative(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("must be a finite number")
	}
	if v < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

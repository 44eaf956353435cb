package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-yaml"

	"github.com/reglet-dev/xrrlab/internal/application/dto"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
)

var listFormats = []string{"table", "json", "yaml"}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return yaml.NewEncoder(w).Encode(v)
	default:
		return fmt.Errorf("invalid format: %s (valid: %v)", format, listFormats)
	}
}

// writeStack prints the stack top to bottom, substrate last.
func writeStack(w io.Writer, view dto.StackView, format string) error {
	if format != "table" {
		return writeStructured(w, view, format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tMATERIAL\tTHICKNESS (Å)\tDENSITY (g/cm³)\tROUGHNESS (Å)")
	last := len(view.Layers) - 1
	for i, l := range view.Layers {
		thickness := fmt.Sprintf("%.2f", l.Thickness)
		if i == last {
			thickness = "substrate"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.3f\t%.2f\n",
			i, l.ID.Short(), l.Material, thickness, l.Density, l.Roughness)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Total thickness: %.2f Å\n", view.TotalThickness)
	return err
}

// writePresets prints the material preset table.
func writePresets(w io.Writer, presets []entities.MaterialPreset, format string) error {
	if format != "table" {
		return writeStructured(w, presets, format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFORMULA\tDENSITY (g/cm³)\tROUGHNESS (Å)")
	for _, p := range presets {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.1f\n", p.Name, p.Formula, p.Density, p.Roughness)
	}
	return tw.Flush()
}

// writeProfile prints a density profile. The table form lists the interfaces
// and every stride-th sample; csv lists all samples.
func writeProfile(w io.Writer, p *entities.DensityProfile, format string, stride int) error {
	switch format {
	case "json", "yaml":
		return writeStructured(w, p, format)
	case "csv":
		if _, err := fmt.Fprintln(w, "z (A), rho (g/cm^3)"); err != nil {
			return err
		}
		for i := range p.Z {
			if _, err := fmt.Fprintf(w, "%.4f,%.6f\n", p.Z[i], p.Rho[i]); err != nil {
				return err
			}
		}
		return nil
	}

	if stride < 1 {
		stride = 1
	}
	fmt.Fprintf(w, "Interfaces (Å):")
	for _, z := range p.Interfaces {
		fmt.Fprintf(w, " %.2f", z)
	}
	fmt.Fprintf(w, "\nSamples: %d\n\n", p.Len())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "z (Å)\tρ (g/cm³)\t")
	for i := 0; i < p.Len(); i += stride {
		fmt.Fprintf(tw, "%.2f\t%.4f\t\n", p.Z[i], p.Rho[i])
	}
	return tw.Flush()
}

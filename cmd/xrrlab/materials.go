package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
)

var materialsFormat string

var materialsCmd = &cobra.Command{
	Use:   "materials",
	Short: "List the material presets accepted by 'layer add --preset'",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writePresets(cmd.OutOrStdout(), entities.MaterialPresets(), materialsFormat)
	},
}

func init() {
	materialsCmd.Flags().StringVar(&materialsFormat, "format", "table", fmt.Sprintf("Output format: %v", listFormats))
	rootCmd.AddCommand(materialsCmd)
}

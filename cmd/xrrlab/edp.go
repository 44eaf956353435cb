package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var edpFormats = []string{"table", "json", "yaml", "csv"}

var (
	edpOpts   = DefaultCommonOptions()
	edpStride int
)

var edpCmd = &cobra.Command{
	Use:   "edp",
	Short: "Print the electron density profile of the layer stack",
	Long: `Synthesize the depth profile of the editable stack. Depth 0 is the top surface
and increases into the sample; every interface is smeared by its roughness.`,
	Example: `  xrrlab edp
  xrrlab edp --format csv -o profile.csv`,
	Args: cobra.NoArgs,
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, _ []string) error {
		if err := edpOpts.ValidateFlags(edpFormats); err != nil {
			return err
		}
		session, err := cc.Session()
		if err != nil {
			return err
		}

		w, closeOut, err := edpOpts.OpenWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer func() { _ = closeOut() }()

		return writeProfile(w, session.Profile(), edpOpts.Format, edpStride)
	}),
}

func init() {
	edpCmd.Flags().StringVar(&edpOpts.Format, "format", edpOpts.Format, fmt.Sprintf("Output format: %v", edpFormats))
	edpCmd.Flags().StringVarP(&edpOpts.Output, "output", "o", "", "Output file path (default: stdout)")
	edpCmd.Flags().IntVar(&edpStride, "stride", 10, "print every n-th sample in table output")
	rootCmd.AddCommand(edpCmd)
}

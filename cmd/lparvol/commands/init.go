package commands

import (
	"github.com/spf13/cobra"

	"github.com/powervm-tools/lparvol/cmd/lparvol/handlers"
)

// Init returns the command for creating a configuration file.
//
// When stdin is a terminal this runs an interactive wizard; otherwise a
// commented sample file is written for manual editing.
//
// Flags:
//
//	--output, -o: Path to the output file (default "lparvol.yaml")
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a provisioning configuration",
		Long: `Create a provisioning configuration file.

Running in a terminal starts an interactive wizard that asks for the HMC
connection details and the provisioning targets (managed system, LPAR,
VIOS, volume name and size). Without a terminal a commented sample file
is written instead.

The HMC password is never stored; supply it via the HMC_PASSWORD
environment variable or add it to the file afterwards.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(outputPath, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "lparvol.yaml", "Output file path")

	return cmd
}

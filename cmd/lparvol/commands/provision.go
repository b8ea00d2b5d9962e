package commands

import (
	"github.com/spf13/cobra"

	"github.com/powervm-tools/lparvol/cmd/lparvol/handlers"
)

// Provision returns the command that runs the full provisioning sequence.
//
// The sequence creates a virtual SCSI server/client adapter pair between
// the VIOS and the target LPAR, creates a logical volume on the VIOS, and
// maps it through the adapter pair. Each step is idempotent; on failure
// everything the run created is removed again in reverse order.
//
// Optional flags:
//
//	--config, -c: Path to the configuration YAML file (default: lparvol.yaml)
//	--verbose, -v: Enable debug logging
//
// Environment variables:
//
//	HMC_PASSWORD: HMC password, used when the config file omits it
func Provision() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create a logical volume and map it to an LPAR",
		Long: `Create a VIOS-backed virtual disk and attach it to an LPAR.

The run connects to the HMC, creates a virtual SCSI adapter pair between
the VIOS and the target partition, creates the logical volume, maps it
through the adapter pair, and verifies the mapping. Steps that find their
resource already in place are skipped, so a failed run can simply be
re-run after fixing the cause.

If a step fails, everything this run created is removed again in reverse
order and the attempted cleanup commands are reported.

On success the result is printed as YAML on stdout.

Examples:
  # Provision using lparvol.yaml in the current directory
  lparvol provision

  # Provision using a specific config file with debug logging
  lparvol provision -c prod.yaml -v`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Provision(cmd.Context(), handlers.ProvisionOptions{
				ConfigPath: configPath,
				Verbose:    verbose,
				Out:        cmd.OutOrStdout(),
				ErrOut:     cmd.ErrOrStderr(),
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "lparvol.yaml", "Path to configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

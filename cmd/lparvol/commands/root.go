// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing and flag binding. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the lparvol CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lparvol",
		Short: "Provision VIOS-backed virtual disks for PowerVM LPARs",
	}

	cmd.AddCommand(Init())
	cmd.AddCommand(Provision())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

// Package main is the entry point for the lparvol CLI.
//
// lparvol provisions VIOS-backed virtual disks for PowerVM LPARs through
// the Hardware Management Console: it creates a virtual SCSI adapter pair,
// creates a logical volume on the VIOS, and maps it to the target
// partition, rolling its own changes back when a step fails.
//
// Commands: init, provision, version, completion.
//
// For detailed usage information, run:
//
//	lparvol --help
package main

import (
	"fmt"
	"os"

	"github.com/powervm-tools/lparvol/cmd/lparvol/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

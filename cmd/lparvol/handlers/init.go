package handlers

import (
	"fmt"
	"io"
	"os"

	"github.com/powervm-tools/lparvol/internal/config"
)

// Factory function variables for init - can be replaced in tests.
var (
	// interactiveAvailable reports whether stdin is a terminal.
	interactiveAvailable = config.InteractiveAvailable

	// runWizard runs the interactive configuration wizard.
	runWizard = config.RunWizard

	// writeConfig writes a wizard result to a file.
	writeConfig = config.WriteConfig

	// writeSample writes the commented sample configuration.
	writeSample = config.WriteSample
)

// Init creates a configuration file: interactively when a terminal is
// attached, otherwise a commented sample to edit by hand.
func Init(outputPath string, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}

	if !interactiveAvailable() {
		if err := writeSample(outputPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote sample configuration to %s; edit it before provisioning.\n", outputPath)
		return nil
	}

	cfg, err := runWizard()
	if err != nil {
		return err
	}
	if err := writeConfig(cfg, outputPath); err != nil {
		return err
	}

	fmt.Fprintf(out, "Configuration saved to %s\n", outputPath)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Next: lparvol provision -c %s\n", outputPath)
	if cfg.HMCAuth.Password == "" {
		fmt.Fprintln(out, "Set HMC_PASSWORD in the environment before provisioning.")
	}
	return nil
}

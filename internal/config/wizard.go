package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

// sampleConfig is written by `lparvol init` when running non-interactively.
const sampleConfig = `# lparvol configuration
hmc_host: hmc01.example.com
hmc_auth:
  username: hscroot
  # password may be omitted here and supplied via HMC_PASSWORD
  password: ""

# "cli" runs every query over SSH; "hybrid" resolves identities over the
# HMC REST API (port 12443) and uses SSH only for mutations.
transport: cli

managed_system: power91
lpar_name: mylpar
vios_name: power91-vios
volume_name: mylpar_boot
volume_group: datavg
disk_size_gb: 50
# vtd_name: mylpar_vtd   # optional, max 15 chars, derived when omitted
`

// InteractiveAvailable reports whether an interactive wizard can run.
func InteractiveAvailable() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// RunWizard prompts for the minimal set of provisioning inputs and returns
// a populated Config. Defaults mirror the sample config.
func RunWizard() (*Config, error) {
	cfg := &Config{
		Transport:  TransportCLI,
		DiskSizeGB: 50,
	}
	sizeStr := "50"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("HMC host").
				Description("Hostname or IP of the Hardware Management Console").
				Value(&cfg.HMCHost).
				Validate(required("hmc_host")),
			huh.NewInput().
				Title("HMC username").
				Value(&cfg.HMCAuth.Username).
				Validate(required("username")),
			huh.NewSelect[string]().
				Title("Transport").
				Options(
					huh.NewOption("CLI over SSH", TransportCLI),
					huh.NewOption("Hybrid (REST reads + SSH mutations)", TransportHybrid),
				).
				Value(&cfg.Transport),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Managed system").
				Value(&cfg.ManagedSystem).
				Validate(required("managed_system")),
			huh.NewInput().
				Title("LPAR name").
				Value(&cfg.LPARName).
				Validate(required("lpar_name")),
			huh.NewInput().
				Title("VIOS partition name").
				Value(&cfg.VIOSName).
				Validate(required("vios_name")),
			huh.NewInput().
				Title("Logical volume name").
				Value(&cfg.VolumeName).
				Validate(required("volume_name")),
			huh.NewInput().
				Title("Volume group").
				Value(&cfg.VolumeGroup).
				Validate(required("volume_group")),
			huh.NewInput().
				Title("Disk size (GB)").
				Value(&sizeStr).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 {
						return fmt.Errorf("must be a positive integer")
					}
					return nil
				}),
		),
	)

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard aborted: %w", err)
	}

	if n, err := strconv.Atoi(sizeStr); err == nil {
		cfg.DiskSizeGB = n
	}
	cfg.REST.Port = DefaultRESTPort
	cfg.Signatures.applyDefaults()

	return cfg, nil
}

// WriteSample writes the commented sample configuration to path. It refuses
// to overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, not overwriting", path)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// WriteConfig marshals cfg to YAML at path. It refuses to overwrite an
// existing file.
func WriteConfig(cfg *Config, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, not overwriting", path)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

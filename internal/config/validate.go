package config

import "fmt"

// Validate checks the configuration for common errors and returns a
// detailed error if validation fails.
func (c *Config) Validate() error {
	if c.HMCHost == "" {
		return fmt.Errorf("hmc_host is required")
	}
	if c.HMCAuth.Username == "" {
		return fmt.Errorf("hmc_auth.username is required")
	}
	if c.HMCAuth.Password == "" {
		return fmt.Errorf("hmc_auth.password is required (set it in the config file or via HMC_PASSWORD)")
	}
	if c.ManagedSystem == "" {
		return fmt.Errorf("managed_system is required")
	}
	if c.LPARName == "" {
		return fmt.Errorf("lpar_name is required")
	}
	if c.VIOSName == "" {
		return fmt.Errorf("vios_name is required")
	}
	if c.VolumeName == "" {
		return fmt.Errorf("volume_name is required")
	}
	if c.VolumeGroup == "" {
		return fmt.Errorf("volume_group is required")
	}
	if c.DiskSizeGB < 1 {
		return fmt.Errorf("disk_size_gb must be at least 1, got %d", c.DiskSizeGB)
	}
	switch c.Transport {
	case TransportCLI, TransportHybrid:
	default:
		return fmt.Errorf("transport must be %q or %q, got %q", TransportCLI, TransportHybrid, c.Transport)
	}
	if c.Transport == TransportHybrid && (c.REST.Port < 1 || c.REST.Port > 65535) {
		return fmt.Errorf("rest.port must be a valid port, got %d", c.REST.Port)
	}
	return nil
}

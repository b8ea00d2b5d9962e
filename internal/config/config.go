package config

// Config holds the application configuration.
type Config struct {
	// HMC connection
	HMCHost string     `mapstructure:"hmc_host" yaml:"hmc_host"`
	HMCAuth AuthConfig `mapstructure:"hmc_auth" yaml:"hmc_auth"`

	// Transport selects how read-only identifiers are resolved:
	// "cli" issues every query over the SSH session, "hybrid" resolves
	// identities through the HMC REST API and uses SSH only for
	// mutations and the queries the API does not expose.
	Transport string `mapstructure:"transport" yaml:"transport"`

	// REST holds hybrid-transport settings.
	REST RESTConfig `mapstructure:"rest" yaml:"rest"`

	// Provisioning target
	ManagedSystem string `mapstructure:"managed_system" yaml:"managed_system"`
	LPARName      string `mapstructure:"lpar_name" yaml:"lpar_name"`
	VIOSName      string `mapstructure:"vios_name" yaml:"vios_name"`
	VolumeName    string `mapstructure:"volume_name" yaml:"volume_name"`
	VolumeGroup   string `mapstructure:"volume_group" yaml:"volume_group"`
	DiskSizeGB    int    `mapstructure:"disk_size_gb" yaml:"disk_size_gb"`

	// VTDName overrides the derived virtual target device name
	// (max 15 chars; longer values are truncated).
	VTDName string `mapstructure:"vtd_name" yaml:"vtd_name"`

	// Signatures configures benign-duplicate classification.
	Signatures Signatures `mapstructure:"signatures" yaml:"signatures"`
}

// AuthConfig holds HMC credentials. The password may be omitted from the
// file and supplied via the HMC_PASSWORD environment variable instead.
type AuthConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// RESTConfig holds settings for the HMC REST API used by the hybrid
// transport.
type RESTConfig struct {
	// Port is the HMC REST API port (default 12443).
	Port int `mapstructure:"port" yaml:"port"`
	// VerifyTLS enables certificate verification. HMCs ship self-signed
	// certificates, so this defaults to false.
	VerifyTLS bool `mapstructure:"verify_tls" yaml:"verify_tls"`
}

// Transport kinds accepted in Config.Transport.
const (
	TransportCLI    = "cli"
	TransportHybrid = "hybrid"
)

// DefaultRESTPort is the HMC REST API port.
const DefaultRESTPort = 12443

// Signatures holds the per-step benign-duplicate signatures. A mutating
// command that exits non-zero but whose combined stdout+stderr contains one
// of the step's signatures is treated as already satisfied rather than as a
// failure. Message text varies across controller versions; extend these
// lists in the config file when a new version rewords its duplicate errors.
type Signatures struct {
	ServerAdapter []string `mapstructure:"server_adapter" yaml:"server_adapter"`
	ClientAdapter []string `mapstructure:"client_adapter" yaml:"client_adapter"`
	LogicalVolume []string `mapstructure:"logical_volume" yaml:"logical_volume"`
	Mapping       []string `mapstructure:"mapping" yaml:"mapping"`
}

// DefaultSignatures returns the duplicate signatures emitted by current HMC
// and VIOS releases.
func DefaultSignatures() Signatures {
	return Signatures{
		ServerAdapter: []string{"already exists"},
		ClientAdapter: []string{"virtual adapter has been specified"},
		LogicalVolume: []string{"already used"},
		Mapping:       []string{"already exists"},
	}
}

func (s *Signatures) applyDefaults() {
	def := DefaultSignatures()
	if len(s.ServerAdapter) == 0 {
		s.ServerAdapter = def.ServerAdapter
	}
	if len(s.ClientAdapter) == 0 {
		s.ClientAdapter = def.ClientAdapter
	}
	if len(s.LogicalVolume) == 0 {
		s.LogicalVolume = def.LogicalVolume
	}
	if len(s.Mapping) == 0 {
		s.Mapping = def.Mapping
	}
}

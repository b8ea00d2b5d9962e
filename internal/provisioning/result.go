package provisioning

// Result is the caller-facing outcome of a successful run.
type Result struct {
	// RunID correlates log lines, metrics and the printed result of one
	// saga execution.
	RunID string `yaml:"run_id"`

	LPARName    string `yaml:"lpar_name"`
	VIOSName    string `yaml:"vios_name"`
	VolumeName  string `yaml:"volume_name"`
	VolumeGroup string `yaml:"volume_group"`

	// VTDName is the mapping device name actually used, after derivation
	// and truncation.
	VTDName string `yaml:"vtd_name"`

	// Vhost is the server adapter the volume was mapped through.
	Vhost string `yaml:"vhost"`

	// Mapping is the verification snapshot of the final mapping listing.
	Mapping string `yaml:"mapping"`

	// Changed reports whether this run caused any mutation. A re-entrant
	// run that found everything already in place reports false.
	Changed bool `yaml:"changed"`
}

// Package config handles application configuration for lparvol.
//
// Configuration is loaded from a YAML file, decoded via mapstructure,
// defaulted, and validated. Timeouts and retry tuning are read from
// environment variables so operators can adjust them without touching the
// config file. The benign-duplicate signature sets used for idempotency
// classification live here as configuration rather than as hard-coded
// literals in the saga, because they are coupled to controller message
// text that varies between HMC versions.
package config

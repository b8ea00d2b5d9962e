package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	Connect            time.Duration // SSH dial timeout
	Command            time.Duration // Per-command execution timeout
	REST               time.Duration // Per-HTTP-call timeout
	SettleDelay        time.Duration // Wait between adapter creation and device rescan
	RescanMaxAttempts  int           // Max attempts for the rescan + vhost discovery sequence
	RescanInitialDelay time.Duration // Initial backoff delay between rescan attempts
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - HMC_CONNECT_TIMEOUT (default: 30s)
//   - HMC_COMMAND_TIMEOUT (default: 2m)
//   - HMC_REST_TIMEOUT (default: 30s)
//   - HMC_SETTLE_DELAY (default: 5s)
//   - HMC_RESCAN_MAX_ATTEMPTS (default: 3)
//   - HMC_RESCAN_INITIAL_DELAY (default: 2s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Connect:            parseDuration("HMC_CONNECT_TIMEOUT", 30*time.Second),
		Command:            parseDuration("HMC_COMMAND_TIMEOUT", 2*time.Minute),
		REST:               parseDuration("HMC_REST_TIMEOUT", 30*time.Second),
		SettleDelay:        parseDuration("HMC_SETTLE_DELAY", 5*time.Second),
		RescanMaxAttempts:  parseInt("HMC_RESCAN_MAX_ATTEMPTS", 3),
		RescanInitialDelay: parseDuration("HMC_RESCAN_INITIAL_DELAY", 2*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return defaultVal
	}

	return n
}

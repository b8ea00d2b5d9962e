// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/powervm-tools/lparvol/internal/config"
	"github.com/powervm-tools/lparvol/internal/provisioning"
)

// Provisioner runs one provisioning saga. provisioning.Service is the real
// implementation; tests substitute their own.
type Provisioner interface {
	Provision(ctx context.Context) (*provisioning.Result, error)
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfig reads the provisioning configuration file.
	loadConfig = config.LoadFile

	// loadTimeouts reads timeout overrides from the environment.
	loadTimeouts = config.LoadTimeouts

	// newProvisioner builds the provisioning service.
	newProvisioner = func(cfg *config.Config, timeouts *config.Timeouts, logger zerolog.Logger, metrics *provisioning.Metrics) Provisioner {
		return &provisioning.Service{Config: cfg, Timeouts: timeouts, Logger: logger, Metrics: metrics}
	}
)

// ProvisionOptions carries the provision command's inputs.
type ProvisionOptions struct {
	ConfigPath string
	Verbose    bool

	// Out receives the result document; ErrOut receives logs and rollback
	// reports. Nil means stdout and stderr.
	Out    io.Writer
	ErrOut io.Writer
}

// Provision loads the configuration, runs the saga against the HMC, and
// renders the result as YAML. On failure the rollback actions attempted
// (if any) are reported before the error is returned.
func Provision(ctx context.Context, opts ProvisionOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s not found (run 'lparvol init' to create one)", opts.ConfigPath)
		}
		return err
	}
	timeouts := loadTimeouts()

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: opts.ErrOut}).
		Level(level).
		With().Timestamp().Logger()

	// Each run gets its own registry so the step counters in the report
	// cover exactly this saga execution.
	registry := prometheus.NewRegistry()
	if opts.Verbose {
		defer dumpMetrics(registry, opts.ErrOut)
	}

	result, err := newProvisioner(cfg, timeouts, logger, provisioning.NewMetrics(registry)).Provision(ctx)
	if err != nil {
		var sagaErr *provisioning.SagaError
		if errors.As(err, &sagaErr) && len(sagaErr.RollbackAttempted) > 0 {
			fmt.Fprintln(opts.ErrOut, "Rollback actions attempted (in order):")
			for _, action := range sagaErr.RollbackAttempted {
				fmt.Fprintf(opts.ErrOut, "  - %s\n", action)
			}
		}
		return err
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}
	_, err = opts.Out.Write(data)
	return err
}

// dumpMetrics writes the run's gathered metrics in text exposition format.
func dumpMetrics(g prometheus.Gatherer, w io.Writer) {
	families, err := g.Gather()
	if err != nil {
		return
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, fam := range families {
		_ = enc.Encode(fam)
	}
}

package hmc

import (
	"context"
	"strings"
)

// CommandResult carries the outcome of one remote command. A non-zero
// ExitCode is not an error at this layer.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Combined returns stdout and stderr concatenated, the form the HMC
// duplicate-message signatures are matched against.
func (r CommandResult) Combined() string {
	return r.Stdout + r.Stderr
}

// Session executes commands on the HMC. Implementations own one
// authenticated channel; Close releases it and is safe to call more than
// once.
type Session interface {
	// RunCommand executes an HMC CLI command. argv is joined with spaces;
	// the HMC restricted shell does its own word splitting.
	RunCommand(ctx context.Context, argv []string) (CommandResult, error)

	// RunVIOSCommand executes a command on the managed guest (the VIOS)
	// through the HMC viosvrcmd passthrough.
	RunVIOSCommand(ctx context.Context, managedSystem, vios, command string) (CommandResult, error)

	Close() error
}

// ResourceFetcher is the read-only document surface of the hybrid
// transport.
type ResourceFetcher interface {
	// FetchResource GETs a REST path and returns the raw document.
	FetchResource(ctx context.Context, path string) ([]byte, error)
}

// Credentials authenticate a session against the HMC.
type Credentials struct {
	Username string
	Password string
}

// VIOSCommand builds the viosvrcmd passthrough for an inner VIOS command.
// The inner command is single-quoted for the HMC shell; embedded single
// quotes are escaped so the inner command cannot break out of the -c
// argument.
func VIOSCommand(managedSystem, vios, inner string) string {
	safe := strings.ReplaceAll(inner, "'", `'"'"'`)
	return "viosvrcmd -m " + managedSystem + " -p " + vios + " -c '" + safe + "'"
}

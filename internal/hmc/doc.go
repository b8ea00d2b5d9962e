// Package hmc provides the transport sessions used to drive a Hardware
// Management Console: command execution over SSH, and the stateful REST
// session used by the hybrid transport for read-only resource feeds.
//
// RunCommand never returns an error for a non-zero exit status; the exit
// code travels in [CommandResult] and the caller classifies it. Errors are
// reserved for transport failures (dial, channel, timeout).
package hmc

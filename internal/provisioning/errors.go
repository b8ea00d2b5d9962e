package provisioning

import (
	"fmt"
	"strings"

	"github.com/powervm-tools/lparvol/internal/hmc"
)

// CommandError reports a mutating step whose exit status was neither
// success nor a recognized benign-duplicate signature.
type CommandError struct {
	State  State
	Argv   string
	Result hmc.CommandResult
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s exited %d: %s",
		e.State, e.Argv, e.Result.ExitCode, strings.TrimSpace(e.Result.Combined()))
}

// VhostNotFoundError indicates the adapter-mapping listing contained no line
// for the target partition. It carries the raw listing for diagnosis; the
// condition is terminal because it means the adapter pairing did not take
// effect.
type VhostNotFoundError struct {
	PartitionToken string
	Listing        string
}

func (e *VhostNotFoundError) Error() string {
	return fmt.Sprintf("no vhost adapter found for partition id %s in mapping listing", e.PartitionToken)
}

// SagaError is the failure outcome of a run: the triggering error plus the
// ordered list of compensations attempted (empty when the failure happened
// before any mutation).
type SagaError struct {
	State             State
	Err               error
	RollbackAttempted []string
}

func (e *SagaError) Error() string {
	if len(e.RollbackAttempted) == 0 {
		return fmt.Sprintf("provisioning failed at %s: %v", e.State, e.Err)
	}
	return fmt.Sprintf("provisioning failed at %s: %v (rollback attempted: %s)",
		e.State, e.Err, strings.Join(e.RollbackAttempted, "; "))
}

func (e *SagaError) Unwrap() error {
	return e.Err
}

package provisioning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/powervm-tools/lparvol/internal/config"
	"github.com/powervm-tools/lparvol/internal/hmc"
	"github.com/powervm-tools/lparvol/internal/locator"
	"github.com/powervm-tools/lparvol/internal/util/naming"
	"github.com/powervm-tools/lparvol/internal/util/retry"
)

// State names the saga's position. The sequence is strictly ordered; the
// only branching is the idempotency short-circuit inside each Ensure step.
type State string

const (
	StateResolveIdentities   State = "resolve-identities"
	StateEnsureServerAdapter State = "ensure-server-adapter"
	StateEnsureClientAdapter State = "ensure-client-adapter"
	StateRescanDevices       State = "rescan-devices"
	StateEnsureLogicalVolume State = "ensure-logical-volume"
	StateResolveVhost        State = "resolve-vhost"
	StateEnsureMapping       State = "ensure-mapping"
	StateVerifyMapping       State = "verify-mapping"
	StateDone                State = "done"
	StateRollingBack         State = "rolling-back"
	StateFailed              State = "failed"
)

// Inputs are the provisioning parameters for one run.
type Inputs struct {
	ManagedSystem string
	LPARName      string
	VIOSName      string
	VolumeName    string
	VolumeGroup   string
	DiskSizeGB    int
	// VTDName overrides the derived mapping device name; truncated to the
	// VIOS limit either way.
	VTDName string
}

// Runner executes the provisioning saga over an established session.
//
// Runs are single-threaded and strictly sequential. The Runner provides no
// mutual exclusion across concurrent runs targeting the same VIOS or
// partition: two runs racing on the same names can both read the same
// next_avail_virtual_slot and corrupt adapter allocation. Serialize runs
// per managed system externally.
type Runner struct {
	Session    hmc.Session
	Locator    locator.Locator
	Timeouts   *config.Timeouts
	Signatures config.Signatures
	Logger     zerolog.Logger
	Metrics    *Metrics
}

// RollbackAction is one recorded compensation. Actions are appended only
// when a step newly caused a change, never when it found the resource
// already present, so replaying them can only remove what this run created.
type RollbackAction struct {
	State       State
	Description string
	run         func(ctx context.Context) (hmc.CommandResult, error)
}

// run carries the mutable state of one saga execution.
type run struct {
	*Runner
	in  Inputs
	id  string
	log zerolog.Logger

	ms     locator.ManagedSystemRef
	target locator.PartitionInfo
	vios   locator.PartitionInfo

	vtdName string
	vhost   string
	mapping string

	changed  bool
	rollback []RollbackAction
}

// Run executes the saga. On failure after any mutation the recorded
// compensations are replayed in reverse order (each best-effort) before the
// error is returned; the returned *SagaError lists the compensations
// attempted. Failures before the first mutation propagate without a
// rollback phase. Caller cancellation aborts to rollback the same way a
// step failure does.
func (r *Runner) Run(ctx context.Context, in Inputs) (*Result, error) {
	rn := &run{
		Runner:  r,
		in:      in,
		id:      uuid.NewString(),
		vtdName: naming.VTDName(in.VTDName, in.LPARName),
	}
	rn.log = r.Logger.With().
		Str("run_id", rn.id).
		Str("managed_system", in.ManagedSystem).
		Str("lpar", in.LPARName).
		Str("vios", in.VIOSName).
		Logger()

	result, sagaErr := rn.execute(ctx)
	if sagaErr == nil {
		rn.log.Info().Bool("changed", result.Changed).Str("vhost", result.Vhost).Msg("provisioning complete")
		return result, nil
	}

	if len(rn.rollback) > 0 {
		rn.log.Error().Err(sagaErr.Err).Str("state", string(sagaErr.State)).Msg("provisioning failed, rolling back")
		// Rollback still runs when the trigger was the caller's own
		// cancellation.
		sagaErr.RollbackAttempted = rn.runRollback(context.WithoutCancel(ctx))
	} else {
		rn.log.Error().Err(sagaErr.Err).Str("state", string(sagaErr.State)).Msg("provisioning failed before any mutation")
	}
	return nil, sagaErr
}

func (rn *run) execute(ctx context.Context) (*Result, *SagaError) {
	steps := []struct {
		state State
		fn    func(context.Context) error
	}{
		{StateResolveIdentities, rn.resolveIdentities},
		{StateEnsureServerAdapter, rn.ensureServerAdapter},
		{StateEnsureClientAdapter, rn.ensureClientAdapter},
		{StateRescanDevices, rn.rescanDevices},
		{StateEnsureLogicalVolume, rn.ensureLogicalVolume},
		{StateResolveVhost, rn.resolveVhost},
		{StateEnsureMapping, rn.ensureMapping},
		{StateVerifyMapping, rn.verifyMapping},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, &SagaError{State: s.state, Err: err}
		}
		start := time.Now()
		rn.log.Debug().Str("state", string(s.state)).Msg("step starting")
		if err := s.fn(ctx); err != nil {
			rn.Metrics.observeStep(s.state, "failed", time.Since(start))
			return nil, &SagaError{State: s.state, Err: err}
		}
		rn.Metrics.observeStep(s.state, "ok", time.Since(start))
	}

	return &Result{
		RunID:       rn.id,
		LPARName:    rn.in.LPARName,
		VIOSName:    rn.in.VIOSName,
		VolumeName:  rn.in.VolumeName,
		VolumeGroup: rn.in.VolumeGroup,
		VTDName:     rn.vtdName,
		Vhost:       rn.vhost,
		Mapping:     rn.mapping,
		Changed:     rn.changed,
	}, nil
}

func (rn *run) resolveIdentities(ctx context.Context) error {
	ms, err := rn.Locator.ManagedSystem(ctx, rn.in.ManagedSystem)
	if err != nil {
		return err
	}
	rn.ms = ms

	target, err := rn.Locator.Partition(ctx, ms, rn.in.LPARName, locator.RoleTarget)
	if err != nil {
		return err
	}
	rn.target = target

	vios, err := rn.Locator.Partition(ctx, ms, rn.in.VIOSName, locator.RoleStorage)
	if err != nil {
		return err
	}
	rn.vios = vios

	rn.log.Debug().
		Int("lpar_id", target.ID).Str("lpar_slot", target.NextSlot).Str("profile", target.ProfileName).
		Int("vios_id", vios.ID).Str("vios_slot", vios.NextSlot).
		Msg("identities resolved")
	return nil
}

func (rn *run) ensureServerAdapter(ctx context.Context) error {
	argv := serverAdapterAddArgs(rn.ms, rn.in.VIOSName, rn.vios.NextSlot, rn.in.LPARName, rn.target.NextSlot)
	removeArgv := serverAdapterRemoveArgs(rn.ms, rn.in.VIOSName, rn.vios.NextSlot)

	return rn.ensureCommand(ctx, StateEnsureServerAdapter,
		func(ctx context.Context) (hmc.CommandResult, error) { return rn.Session.RunCommand(ctx, argv) },
		strings.Join(argv, " "),
		rn.Signatures.ServerAdapter,
		&RollbackAction{
			State:       StateEnsureServerAdapter,
			Description: strings.Join(removeArgv, " "),
			run: func(ctx context.Context) (hmc.CommandResult, error) {
				return rn.Session.RunCommand(ctx, removeArgv)
			},
		})
}

func (rn *run) ensureClientAdapter(ctx context.Context) error {
	addAttr := clientAdapterAttr(rn.target.ProfileName, rn.in.LPARName, rn.target.NextSlot,
		rn.vios.ID, rn.in.VIOSName, rn.vios.NextSlot, "+=")
	removeAttr := clientAdapterAttr(rn.target.ProfileName, rn.in.LPARName, rn.target.NextSlot,
		rn.vios.ID, rn.in.VIOSName, rn.vios.NextSlot, "-=")
	argv := clientAdapterArgs(rn.ms, addAttr)
	removeArgv := clientAdapterArgs(rn.ms, removeAttr)

	return rn.ensureCommand(ctx, StateEnsureClientAdapter,
		func(ctx context.Context) (hmc.CommandResult, error) { return rn.Session.RunCommand(ctx, argv) },
		strings.Join(argv, " "),
		rn.Signatures.ClientAdapter,
		&RollbackAction{
			State:       StateEnsureClientAdapter,
			Description: strings.Join(removeArgv, " "),
			run: func(ctx context.Context) (hmc.CommandResult, error) {
				return rn.Session.RunCommand(ctx, removeArgv)
			},
		})
}

// rescanDevices waits out the settle delay the hypervisor needs to
// propagate the new adapter pair, then asks the VIOS to reconfigure
// devices. The rescan is best-effort: the device may already be configured,
// so its result is observed but never treated as a hard failure.
func (rn *run) rescanDevices(ctx context.Context) error {
	rn.waitSettle(ctx)

	res, err := rn.Session.RunVIOSCommand(ctx, rn.ms.Name, rn.in.VIOSName, rescanCommand)
	switch {
	case err != nil:
		rn.log.Warn().Err(err).Msg("device rescan did not complete")
	case res.ExitCode != 0:
		rn.log.Warn().Int("exit", res.ExitCode).Str("output", strings.TrimSpace(res.Combined())).Msg("device rescan exited non-zero")
	}
	return nil
}

func (rn *run) ensureLogicalVolume(ctx context.Context) error {
	create := mklvCommand(rn.in.VolumeName, rn.in.VolumeGroup, rn.in.DiskSizeGB)
	remove := rmlvCommand(rn.in.VolumeName)

	return rn.ensureCommand(ctx, StateEnsureLogicalVolume,
		func(ctx context.Context) (hmc.CommandResult, error) {
			return rn.Session.RunVIOSCommand(ctx, rn.ms.Name, rn.in.VIOSName, create)
		},
		create,
		rn.Signatures.LogicalVolume,
		&RollbackAction{
			State:       StateEnsureLogicalVolume,
			Description: remove,
			run: func(ctx context.Context) (hmc.CommandResult, error) {
				return rn.Session.RunVIOSCommand(ctx, rn.ms.Name, rn.in.VIOSName, remove)
			},
		})
}

// resolveVhost locates the server adapter presented for the target
// partition. The adapter pair may still be propagating, so the listing is
// retried with backoff, nudging the VIOS with another rescan between
// attempts. Exhausting the attempts is terminal: it means the pairing did
// not take effect.
func (rn *run) resolveVhost(ctx context.Context) error {
	token := PartitionIDToken(rn.target.ID)

	maxRetries := rn.Timeouts.RescanMaxAttempts - 1
	if maxRetries < 0 {
		maxRetries = 0
	}

	return retry.WithExponentialBackoff(ctx, func() error {
		res, err := rn.Session.RunVIOSCommand(ctx, rn.ms.Name, rn.in.VIOSName, lsmapAllCommand)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("%s exited %d: %s", lsmapAllCommand, res.ExitCode, strings.TrimSpace(res.Combined()))
		}

		vhost, err := ResolveVhost(res.Stdout, token)
		if err != nil {
			_, _ = rn.Session.RunVIOSCommand(ctx, rn.ms.Name, rn.in.VIOSName, rescanCommand)
			return err
		}

		rn.vhost = vhost
		rn.log.Debug().Str("vhost", vhost).Str("partition_token", token).Msg("vhost resolved")
		return nil
	},
		retry.WithMaxRetries(maxRetries),
		retry.WithInitialDelay(rn.Timeouts.RescanInitialDelay),
	)
}

func (rn *run) ensureMapping(ctx context.Context) error {
	create := mkvdevCommand(rn.in.VolumeName, rn.vhost, rn.vtdName)
	remove := rmvdevCommand(rn.vtdName)

	return rn.ensureCommand(ctx, StateEnsureMapping,
		func(ctx context.Context) (hmc.CommandResult, error) {
			return rn.Session.RunVIOSCommand(ctx, rn.ms.Name, rn.in.VIOSName, create)
		},
		create,
		rn.Signatures.Mapping,
		&RollbackAction{
			State:       StateEnsureMapping,
			Description: remove,
			run: func(ctx context.Context) (hmc.CommandResult, error) {
				return rn.Session.RunVIOSCommand(ctx, rn.ms.Name, rn.in.VIOSName, remove)
			},
		})
}

func (rn *run) verifyMapping(ctx context.Context) error {
	cmd := lsmapAdapterCommand(rn.vhost)
	res, err := rn.Session.RunVIOSCommand(ctx, rn.ms.Name, rn.in.VIOSName, cmd)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return &CommandError{State: StateVerifyMapping, Argv: cmd, Result: res}
	}
	rn.mapping = strings.TrimSpace(res.Stdout)
	return nil
}

// ensureCommand applies the Ensure pattern: exit 0 records the rollback
// action and marks the run changed; non-zero exit with a benign-duplicate
// signature proceeds without recording anything; anything else aborts.
func (rn *run) ensureCommand(
	ctx context.Context,
	state State,
	exec func(context.Context) (hmc.CommandResult, error),
	description string,
	signatures []string,
	action *RollbackAction,
) error {
	res, err := exec(ctx)
	if err != nil {
		return err
	}

	switch {
	case res.ExitCode == 0:
		rn.changed = true
		rn.rollback = append(rn.rollback, *action)
		rn.log.Info().Str("state", string(state)).Msg("resource created")
		return nil
	case matchesSignature(res.Combined(), signatures):
		rn.log.Info().Str("state", string(state)).Msg("resource already present, skipping")
		return nil
	default:
		return &CommandError{State: state, Argv: description, Result: res}
	}
}

// runRollback replays the recorded compensations in strict reverse order.
// Every compensation is best-effort: failures are logged and swallowed so
// one failed compensation does not block the rest. Returns the ordered
// descriptions of the actions attempted.
func (rn *run) runRollback(ctx context.Context) []string {
	attempted := make([]string, 0, len(rn.rollback))

	for i := len(rn.rollback) - 1; i >= 0; i-- {
		action := rn.rollback[i]
		attempted = append(attempted, action.Description)
		rn.Metrics.observeRollbackAction()

		res, err := action.run(ctx)
		switch {
		case err != nil:
			rn.log.Warn().Err(err).Str("action", action.Description).Msg("rollback action failed")
		case res.ExitCode != 0:
			rn.log.Warn().Int("exit", res.ExitCode).Str("action", action.Description).
				Str("output", strings.TrimSpace(res.Combined())).Msg("rollback action exited non-zero")
		default:
			rn.log.Info().Str("action", action.Description).Msg("rollback action applied")
		}
	}
	return attempted
}

func (rn *run) waitSettle(ctx context.Context) {
	d := rn.Timeouts.SettleDelay
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func matchesSignature(output string, signatures []string) bool {
	for _, sig := range signatures {
		if sig != "" && strings.Contains(output, sig) {
			return true
		}
	}
	return false
}

package provisioning

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powervm-tools/lparvol/internal/config"
	"github.com/powervm-tools/lparvol/internal/hmc"
	"github.com/powervm-tools/lparvol/internal/locator"
)

const happyListing = "vhost3:U9117.MMB.100AAAF-V2-C11:0x00000005:lv_data:Available\n" +
	"vhost7:U9117.MMB.100AAAF-V2-C13:0x00000002::\n"

// scriptedHMC answers commands by first-matching substring and records
// everything executed, CLI and VIOS passthrough alike.
type scriptedHMC struct {
	responses []scriptedResponse
	executed  []string
}

type scriptedResponse struct {
	contains string
	result   hmc.CommandResult
	err      error
}

func (s *scriptedHMC) run(cmd string) (hmc.CommandResult, error) {
	s.executed = append(s.executed, cmd)
	for _, r := range s.responses {
		if strings.Contains(cmd, r.contains) {
			return r.result, r.err
		}
	}
	return hmc.CommandResult{}, nil
}

func (s *scriptedHMC) session() *hmc.MockSession {
	return &hmc.MockSession{
		RunCommandFunc: func(_ context.Context, argv []string) (hmc.CommandResult, error) {
			return s.run(strings.Join(argv, " "))
		},
		RunVIOSCommandFunc: func(_ context.Context, _, _ string, cmd string) (hmc.CommandResult, error) {
			return s.run(cmd)
		},
	}
}

func (s *scriptedHMC) indexOf(t *testing.T, substr string) int {
	t.Helper()
	for i, cmd := range s.executed {
		if strings.Contains(cmd, substr) {
			return i
		}
	}
	t.Fatalf("no executed command contains %q; executed: %v", substr, s.executed)
	return -1
}

func (s *scriptedHMC) assertNotExecuted(t *testing.T, substr string) {
	t.Helper()
	for _, cmd := range s.executed {
		assert.NotContains(t, cmd, substr)
	}
}

type stubLocator struct {
	msFunc   func(ctx context.Context, name string) (locator.ManagedSystemRef, error)
	partFunc func(ctx context.Context, ms locator.ManagedSystemRef, name string, role locator.Role) (locator.PartitionInfo, error)
}

func (s *stubLocator) ManagedSystem(ctx context.Context, name string) (locator.ManagedSystemRef, error) {
	return s.msFunc(ctx, name)
}

func (s *stubLocator) Partition(ctx context.Context, ms locator.ManagedSystemRef, name string, role locator.Role) (locator.PartitionInfo, error) {
	return s.partFunc(ctx, ms, name, role)
}

func fixtureLocator() *stubLocator {
	return &stubLocator{
		msFunc: func(_ context.Context, name string) (locator.ManagedSystemRef, error) {
			return locator.ManagedSystemRef{Name: name, Handle: name}, nil
		},
		partFunc: func(_ context.Context, _ locator.ManagedSystemRef, name string, role locator.Role) (locator.PartitionInfo, error) {
			if role == locator.RoleStorage {
				return locator.PartitionInfo{ID: 2, NextSlot: "11"}, nil
			}
			return locator.PartitionInfo{ID: 5, NextSlot: "6", ProfileName: "default"}, nil
		},
	}
}

func testTimeouts() *config.Timeouts {
	return &config.Timeouts{
		SettleDelay:        0,
		RescanMaxAttempts:  3,
		RescanInitialDelay: time.Millisecond,
	}
}

func newTestRunner(session hmc.Session) *Runner {
	return &Runner{
		Session:    session,
		Locator:    fixtureLocator(),
		Timeouts:   testTimeouts(),
		Signatures: config.DefaultSignatures(),
		Logger:     zerolog.Nop(),
	}
}

func testInputs() Inputs {
	return Inputs{
		ManagedSystem: "P9-S922",
		LPARName:      "demo01",
		VIOSName:      "vios1",
		VolumeName:    "lv_data",
		VolumeGroup:   "datavg",
		DiskSizeGB:    20,
	}
}

func TestRunCreatesEverything(t *testing.T) {
	script := &scriptedHMC{responses: []scriptedResponse{
		{contains: "lsmap -all", result: hmc.CommandResult{Stdout: happyListing}},
		{contains: "lsmap -vadapter vhost3", result: hmc.CommandResult{Stdout: "vhost3:U9117.MMB.100AAAF-V2-C11:0x00000005:lv_data\n"}},
	}}

	result, err := newTestRunner(script.session()).Run(context.Background(), testInputs())
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, "vhost3", result.Vhost)
	assert.Equal(t, "demo01_vtd", result.VTDName)
	assert.Equal(t, "vhost3:U9117.MMB.100AAAF-V2-C11:0x00000005:lv_data", result.Mapping)
	assert.NotEmpty(t, result.RunID)

	// Exact mutation grammar.
	assert.Contains(t, script.executed,
		"chhwres -r virtualio --rsubtype scsi -m P9-S922 -o a -p vios1 -s 11 "+
			"-a adapter_type=server,remote_lpar_name=demo01,remote_slot_num=6")
	assert.Contains(t, script.executed,
		"chsyscfg -r prof -m P9-S922 --force -i "+
			"name=default,lpar_name=demo01,virtual_scsi_adapters+=6/client/2/vios1/11/0")
	assert.Contains(t, script.executed, "mklv -lv lv_data datavg 20G")
	assert.Contains(t, script.executed, "mkvdev -vdev lv_data -vadapter vhost3 -dev demo01_vtd")

	// Strict forward order.
	assert.Less(t, script.indexOf(t, "-o a"), script.indexOf(t, "chsyscfg"))
	assert.Less(t, script.indexOf(t, "chsyscfg"), script.indexOf(t, "cfgdev"))
	assert.Less(t, script.indexOf(t, "cfgdev"), script.indexOf(t, "mklv"))
	assert.Less(t, script.indexOf(t, "mklv"), script.indexOf(t, "lsmap -all"))
	assert.Less(t, script.indexOf(t, "lsmap -all"), script.indexOf(t, "mkvdev"))
	assert.Less(t, script.indexOf(t, "mkvdev"), script.indexOf(t, "lsmap -vadapter"))

	// Success leaves nothing to compensate.
	script.assertNotExecuted(t, "rmvdev")
	script.assertNotExecuted(t, "rmlv")
	script.assertNotExecuted(t, "-o r")
	script.assertNotExecuted(t, "virtual_scsi_adapters-=")
}

func TestRunIdempotentReentry(t *testing.T) {
	script := &scriptedHMC{responses: []scriptedResponse{
		{contains: "chhwres", result: hmc.CommandResult{ExitCode: 1, Stderr: "HSCL1462 slot 11 already exists"}},
		{contains: "chsyscfg", result: hmc.CommandResult{ExitCode: 1, Stderr: "HSCL13A8 a virtual adapter has been specified for slot 6"}},
		{contains: "mklv", result: hmc.CommandResult{ExitCode: 1, Stdout: "0516-360 mklv: the name lv_data is already used"}},
		{contains: "mkvdev", result: hmc.CommandResult{ExitCode: 1, Stderr: "the device already exists"}},
		{contains: "lsmap -all", result: hmc.CommandResult{Stdout: happyListing}},
		{contains: "lsmap -vadapter", result: hmc.CommandResult{Stdout: "vhost3:...:lv_data\n"}},
	}}

	result, err := newTestRunner(script.session()).Run(context.Background(), testInputs())
	require.NoError(t, err)

	assert.False(t, result.Changed)
	assert.Equal(t, "vhost3", result.Vhost)

	// Nothing was newly created, so nothing may be torn down.
	script.assertNotExecuted(t, "rmvdev")
	script.assertNotExecuted(t, "rmlv")
	script.assertNotExecuted(t, "-o r")
	script.assertNotExecuted(t, "virtual_scsi_adapters-=")
}

func TestRunRollsBackInReverseOrder(t *testing.T) {
	script := &scriptedHMC{responses: []scriptedResponse{
		{contains: "lsmap -all", result: hmc.CommandResult{Stdout: happyListing}},
		{contains: "mkvdev", result: hmc.CommandResult{ExitCode: 1, Stderr: "0516-1234 mkvdev: backing device busy"}},
	}}

	result, err := newTestRunner(script.session()).Run(context.Background(), testInputs())
	require.Error(t, err)
	assert.Nil(t, result)

	var sagaErr *SagaError
	require.ErrorAs(t, err, &sagaErr)
	assert.Equal(t, StateEnsureMapping, sagaErr.State)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 1, cmdErr.Result.ExitCode)

	// Compensations run in the reverse of creation order; the failed step
	// itself is never compensated.
	require.Len(t, sagaErr.RollbackAttempted, 3)
	assert.Equal(t, "rmlv -f lv_data", sagaErr.RollbackAttempted[0])
	assert.Contains(t, sagaErr.RollbackAttempted[1], "virtual_scsi_adapters-=6/client/2/vios1/11/0")
	assert.Contains(t, sagaErr.RollbackAttempted[2], "-o r -p vios1 -s 11")
	for _, action := range sagaErr.RollbackAttempted {
		assert.NotContains(t, action, "rmvdev")
	}

	assert.Less(t, script.indexOf(t, "mkvdev"), script.indexOf(t, "rmlv -f lv_data"))
	assert.Less(t, script.indexOf(t, "rmlv -f lv_data"), script.indexOf(t, "virtual_scsi_adapters-="))
	assert.Less(t, script.indexOf(t, "virtual_scsi_adapters-="), script.indexOf(t, "-o r"))
	script.assertNotExecuted(t, "rmvdev")
}

func TestRunSkippedStepsAreNotCompensated(t *testing.T) {
	script := &scriptedHMC{responses: []scriptedResponse{
		{contains: "adapter_type=server", result: hmc.CommandResult{ExitCode: 1, Stderr: "HSCL1462 slot 11 already exists"}},
		{contains: "mklv", result: hmc.CommandResult{ExitCode: 1, Stderr: "0516-306 mklv: volume group datavg not found"}},
	}}

	_, err := newTestRunner(script.session()).Run(context.Background(), testInputs())
	require.Error(t, err)

	var sagaErr *SagaError
	require.ErrorAs(t, err, &sagaErr)
	assert.Equal(t, StateEnsureLogicalVolume, sagaErr.State)

	// Only the client adapter was newly created; the already-present server
	// adapter must survive the rollback.
	require.Len(t, sagaErr.RollbackAttempted, 1)
	assert.Contains(t, sagaErr.RollbackAttempted[0], "virtual_scsi_adapters-=")
	script.assertNotExecuted(t, "-o r")
}

func TestRunFailsBeforeMutationWithoutRollback(t *testing.T) {
	script := &scriptedHMC{}
	runner := newTestRunner(script.session())
	runner.Locator = &stubLocator{
		msFunc: func(_ context.Context, name string) (locator.ManagedSystemRef, error) {
			return locator.ManagedSystemRef{}, &locator.ResourceNotFoundError{Kind: "managed system", Name: name}
		},
	}

	_, err := runner.Run(context.Background(), testInputs())
	require.Error(t, err)

	var sagaErr *SagaError
	require.ErrorAs(t, err, &sagaErr)
	assert.Equal(t, StateResolveIdentities, sagaErr.State)
	assert.Empty(t, sagaErr.RollbackAttempted)
	assert.Empty(t, script.executed)

	var notFound *locator.ResourceNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRunRetriesVhostResolution(t *testing.T) {
	var lsmapCalls, rescanCalls int
	session := &hmc.MockSession{
		RunCommandFunc: func(_ context.Context, _ []string) (hmc.CommandResult, error) {
			return hmc.CommandResult{}, nil
		},
		RunVIOSCommandFunc: func(_ context.Context, _, _ string, cmd string) (hmc.CommandResult, error) {
			switch {
			case cmd == lsmapAllCommand:
				lsmapCalls++
				if lsmapCalls == 1 {
					// Adapter pair still propagating.
					return hmc.CommandResult{Stdout: "vhost7:U9117.MMB.100AAAF-V2-C13:0x00000002::\n"}, nil
				}
				return hmc.CommandResult{Stdout: happyListing}, nil
			case cmd == rescanCommand:
				rescanCalls++
				return hmc.CommandResult{}, nil
			default:
				return hmc.CommandResult{Stdout: "vhost3:mapped\n"}, nil
			}
		},
	}

	result, err := newTestRunner(session).Run(context.Background(), testInputs())
	require.NoError(t, err)

	assert.Equal(t, "vhost3", result.Vhost)
	assert.Equal(t, 2, lsmapCalls)
	// One rescan from the settle step, one nudge between listing attempts.
	assert.Equal(t, 2, rescanCalls)
}

func TestRunVhostExhaustionRollsBack(t *testing.T) {
	script := &scriptedHMC{responses: []scriptedResponse{
		{contains: "lsmap -all", result: hmc.CommandResult{Stdout: "vhost7:U9117.MMB.100AAAF-V2-C13:0x00000002::\n"}},
	}}

	runner := newTestRunner(script.session())
	runner.Timeouts.RescanMaxAttempts = 2

	_, err := runner.Run(context.Background(), testInputs())
	require.Error(t, err)

	var sagaErr *SagaError
	require.ErrorAs(t, err, &sagaErr)
	assert.Equal(t, StateResolveVhost, sagaErr.State)

	var notFound *VhostNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "0x00000005", notFound.PartitionToken)

	// Everything created so far is torn down, volume first.
	require.NotEmpty(t, sagaErr.RollbackAttempted)
	assert.Equal(t, "rmlv -f lv_data", sagaErr.RollbackAttempted[0])
}

func TestRunRollsBackOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var rollbackCommands []string
	session := &hmc.MockSession{
		RunCommandFunc: func(ctx context.Context, argv []string) (hmc.CommandResult, error) {
			cmd := strings.Join(argv, " ")
			if strings.Contains(cmd, "-o r") || strings.Contains(cmd, "virtual_scsi_adapters-=") {
				// Compensations must still run after the trigger
				// cancellation.
				require.NoError(t, ctx.Err())
				rollbackCommands = append(rollbackCommands, cmd)
			}
			return hmc.CommandResult{}, nil
		},
		RunVIOSCommandFunc: func(ctx context.Context, _, _ string, cmd string) (hmc.CommandResult, error) {
			if strings.HasPrefix(cmd, "mklv") {
				cancel()
				return hmc.CommandResult{}, ctx.Err()
			}
			return hmc.CommandResult{}, nil
		},
	}
	defer cancel()

	_, err := newTestRunner(session).Run(ctx, testInputs())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var sagaErr *SagaError
	require.ErrorAs(t, err, &sagaErr)
	assert.Equal(t, StateEnsureLogicalVolume, sagaErr.State)

	// Both adapters were created before the cancellation hit.
	require.Len(t, rollbackCommands, 2)
	assert.Contains(t, rollbackCommands[0], "virtual_scsi_adapters-=")
	assert.Contains(t, rollbackCommands[1], "-o r")
}

func TestMatchesSignature(t *testing.T) {
	sigs := []string{"already exists", "has been specified"}

	assert.True(t, matchesSignature("HSCL1462 slot 11 already exists on vios1", sigs))
	assert.True(t, matchesSignature("a virtual adapter has been specified", sigs))
	assert.False(t, matchesSignature("HSCL1431 permission denied", sigs))
	assert.False(t, matchesSignature("already exists", nil))
	assert.False(t, matchesSignature("anything", []string{""}))
}

func TestSagaErrorMessage(t *testing.T) {
	err := &SagaError{
		State:             StateEnsureMapping,
		Err:               errors.New("mkvdev exited 1"),
		RollbackAttempted: []string{"rmlv -f lv_data"},
	}
	assert.Contains(t, err.Error(), "ensure-mapping")
	assert.Contains(t, err.Error(), "rmlv -f lv_data")

	bare := &SagaError{State: StateResolveIdentities, Err: errors.New("no such system")}
	assert.NotContains(t, bare.Error(), "rollback")
}

package locator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powervm-tools/lparvol/internal/hmc"
)

// scriptedSession answers RunCommand by matching the joined argv against
// canned responses.
func scriptedSession(responses map[string]hmc.CommandResult) *hmc.MockSession {
	return &hmc.MockSession{
		RunCommandFunc: func(_ context.Context, argv []string) (hmc.CommandResult, error) {
			cmd := strings.Join(argv, " ")
			for key, res := range responses {
				if strings.Contains(cmd, key) {
					return res, nil
				}
			}
			return hmc.CommandResult{ExitCode: 1, Stderr: "no such command: " + cmd}, nil
		},
	}
}

func TestCLILocator_ManagedSystem(t *testing.T) {
	l := NewCLILocator(scriptedSession(map[string]hmc.CommandResult{
		"lssyscfg -r sys -m power91": {Stdout: "power91\n"},
	}))

	ms, err := l.ManagedSystem(context.Background(), "power91")
	require.NoError(t, err)
	assert.Equal(t, ManagedSystemRef{Name: "power91", Handle: "power91"}, ms)

	_, err = l.ManagedSystem(context.Background(), "missing")
	var notFound *ResourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "managed system", notFound.Kind)
}

func TestCLILocator_PartitionTarget(t *testing.T) {
	l := NewCLILocator(scriptedSession(map[string]hmc.CommandResult{
		"-F lpar_id --filter lpar_names=mylpar":                   {Stdout: "5\n"},
		"-F next_avail_virtual_slot":                              {Stdout: "12\n"},
		"lssyscfg -r prof -m power91 --filter lpar_names=mylpar": {Stdout: "default_profile\n"},
	}))
	ms := ManagedSystemRef{Name: "power91", Handle: "power91"}

	info, err := l.Partition(context.Background(), ms, "mylpar", RoleTarget)
	require.NoError(t, err)
	assert.Equal(t, 5, info.ID)
	assert.Equal(t, "12", info.NextSlot)
	assert.Equal(t, "default_profile", info.ProfileName)
}

func TestCLILocator_PartitionStorageSkipsProfile(t *testing.T) {
	calls := 0
	session := &hmc.MockSession{
		RunCommandFunc: func(_ context.Context, argv []string) (hmc.CommandResult, error) {
			calls++
			cmd := strings.Join(argv, " ")
			require.NotContains(t, cmd, "-r prof", "VIOS resolution must not query profiles")
			if strings.Contains(cmd, "lpar_id") {
				return hmc.CommandResult{Stdout: "1\n"}, nil
			}
			return hmc.CommandResult{Stdout: "3\n"}, nil
		},
	}
	l := NewCLILocator(session)

	info, err := l.Partition(context.Background(), ManagedSystemRef{Name: "power91"}, "power91-vios", RoleStorage)
	require.NoError(t, err)
	assert.Equal(t, 1, info.ID)
	assert.Equal(t, "3", info.NextSlot)
	assert.Empty(t, info.ProfileName)
	assert.Equal(t, 2, calls)
}

func TestCLILocator_PartitionNotFoundListsCandidates(t *testing.T) {
	l := NewCLILocator(scriptedSession(map[string]hmc.CommandResult{
		"-F lpar_id": {ExitCode: 1, Stderr: "HSCL8012 The partition was not found."},
		"-F name":    {Stdout: "lparA\nlparB\npower91-vios\n"},
	}))

	_, err := l.Partition(context.Background(), ManagedSystemRef{Name: "power91"}, "ghost", RoleTarget)
	var notFound *ResourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.Name)
	assert.Equal(t, []string{"lparA", "lparB", "power91-vios"}, notFound.Candidates)
}

func TestCLILocator_PartitionTransportErrorPropagates(t *testing.T) {
	transportErr := errors.New("connection reset by peer")
	calls := 0
	session := &hmc.MockSession{
		RunCommandFunc: func(_ context.Context, _ []string) (hmc.CommandResult, error) {
			calls++
			return hmc.CommandResult{}, transportErr
		},
	}
	l := NewCLILocator(session)

	_, err := l.Partition(context.Background(), ManagedSystemRef{Name: "power91"}, "mylpar", RoleTarget)
	require.Error(t, err)
	assert.ErrorIs(t, err, transportErr)

	var notFound *ResourceNotFoundError
	assert.False(t, errors.As(err, &notFound), "a transport failure is not a name-resolution miss")
	assert.Equal(t, 1, calls, "no candidates listing on a broken session")
}

func TestCLILocator_PartitionNonNumericID(t *testing.T) {
	l := NewCLILocator(scriptedSession(map[string]hmc.CommandResult{
		"-F lpar_id": {Stdout: "not-a-number\n"},
	}))

	_, err := l.Partition(context.Background(), ManagedSystemRef{Name: "power91"}, "mylpar", RoleTarget)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not numeric")
}

func TestBoundCandidates(t *testing.T) {
	names := make([]string, 25)
	for i := range names {
		names[i] = "p"
	}
	assert.Len(t, boundCandidates(names), maxCandidateNames)
	assert.Len(t, boundCandidates(names[:3]), 3)
}

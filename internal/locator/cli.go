package locator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/powervm-tools/lparvol/internal/hmc"
)

// CLILocator resolves every identity through HMC CLI queries on the
// command session.
type CLILocator struct {
	session hmc.Session
}

// NewCLILocator builds a locator over an established command session.
func NewCLILocator(session hmc.Session) *CLILocator {
	return &CLILocator{session: session}
}

// ManagedSystem verifies the managed system exists; CLI commands address it
// by name, so the handle is the name itself.
func (l *CLILocator) ManagedSystem(ctx context.Context, name string) (ManagedSystemRef, error) {
	res, err := l.session.RunCommand(ctx, []string{
		"lssyscfg", "-r", "sys", "-m", name, "-F", "name",
	})
	if err != nil {
		return ManagedSystemRef{}, err
	}
	if res.ExitCode != 0 || firstLine(res.Stdout) == "" {
		return ManagedSystemRef{}, &ResourceNotFoundError{Kind: "managed system", Name: name}
	}
	return ManagedSystemRef{Name: name, Handle: name}, nil
}

// Partition resolves the numeric partition id, the next available virtual
// slot, and (for the target partition) the configuration profile name, one
// CLI query per field.
func (l *CLILocator) Partition(ctx context.Context, ms ManagedSystemRef, name string, role Role) (PartitionInfo, error) {
	var info PartitionInfo

	res, err := l.session.RunCommand(ctx, []string{
		"lssyscfg", "-r", "lpar", "-m", ms.Name, "-F", "lpar_id", "--filter", "lpar_names=" + name,
	})
	if err != nil {
		return info, fmt.Errorf("partition %s: %w", name, err)
	}
	// Only a completed query that found nothing is a not-found; transport
	// failures propagate above.
	idOut := firstLine(res.Stdout)
	if res.ExitCode != 0 || idOut == "" {
		return info, l.notFound(ctx, ms.Name, name)
	}
	id, err := strconv.Atoi(idOut)
	if err != nil {
		return info, fmt.Errorf("partition %s: lpar_id %q is not numeric: %w", name, idOut, err)
	}
	info.ID = id

	slot, err := l.query(ctx, []string{
		"lshwres", "-r", "virtualio", "--rsubtype", "slot", "--level", "lpar",
		"-m", ms.Name, "--filter", "lpar_names=" + name, "-F", "next_avail_virtual_slot",
	})
	if err != nil {
		return info, fmt.Errorf("partition %s: %w", name, err)
	}
	info.NextSlot = slot

	if role == RoleTarget {
		profile, err := l.query(ctx, []string{
			"lssyscfg", "-r", "prof", "-m", ms.Name, "--filter", "lpar_names=" + name, "-F", "name",
		})
		if err != nil {
			return info, fmt.Errorf("partition %s: %w", name, err)
		}
		info.ProfileName = profile
	}

	return info, nil
}

// query runs a single-value CLI query and returns the first output line.
func (l *CLILocator) query(ctx context.Context, argv []string) (string, error) {
	res, err := l.session.RunCommand(ctx, argv)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%s exited %d: %s", argv[0], res.ExitCode, strings.TrimSpace(res.Combined()))
	}
	v := firstLine(res.Stdout)
	if v == "" {
		return "", fmt.Errorf("%s returned no output", argv[0])
	}
	return v, nil
}

// notFound builds a ResourceNotFoundError carrying the partition names that
// do exist on the managed system, when they can be listed.
func (l *CLILocator) notFound(ctx context.Context, msName, name string) error {
	e := &ResourceNotFoundError{Kind: "partition", Name: name}
	res, err := l.session.RunCommand(ctx, []string{
		"lssyscfg", "-r", "lpar", "-m", msName, "-F", "name",
	})
	if err == nil && res.ExitCode == 0 {
		var names []string
		for _, line := range strings.Split(res.Stdout, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				names = append(names, line)
			}
		}
		e.Candidates = boundCandidates(names)
	}
	return e
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

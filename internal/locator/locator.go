package locator

import (
	"context"
	"fmt"
	"strings"
)

// Role distinguishes the two partitions a provisioning run touches.
type Role string

const (
	// RoleTarget is the partition receiving the storage.
	RoleTarget Role = "target"
	// RoleStorage is the storage-serving partition (the VIOS).
	RoleStorage Role = "vios"
)

// PartitionInfo carries the resolved identity of one partition.
type PartitionInfo struct {
	// ID is the numeric partition identifier used by chsyscfg and for
	// vhost discovery. It is never the REST resource UUID.
	ID int
	// NextSlot is the next available virtual adapter slot.
	NextSlot string
	// ProfileName is the active configuration profile; resolved for the
	// target partition only.
	ProfileName string
	// UUID is the REST resource identifier; hybrid transport only.
	UUID string
}

// ManagedSystemRef is a resolved managed system. Name addresses it in CLI
// commands; Handle is the transport-specific identifier (the name again for
// the CLI transport, the resource UUID for hybrid).
type ManagedSystemRef struct {
	Name   string
	Handle string
}

// Locator resolves names to the identifiers mutation commands need.
// References are resolved once per run and treated as immutable thereafter.
type Locator interface {
	// ManagedSystem resolves the managed system by name.
	ManagedSystem(ctx context.Context, name string) (ManagedSystemRef, error)

	// Partition resolves a partition by name within a managed system.
	Partition(ctx context.Context, ms ManagedSystemRef, name string, role Role) (PartitionInfo, error)
}

// maxCandidateNames bounds the diagnostic name list carried by
// ResourceNotFoundError.
const maxCandidateNames = 10

// ResourceNotFoundError reports a name that did not resolve, along with a
// bounded list of the candidate names that were seen, for diagnosis.
type ResourceNotFoundError struct {
	Kind       string
	Name       string
	Candidates []string
}

func (e *ResourceNotFoundError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s not found: %s (saw: %s)", e.Kind, e.Name, strings.Join(e.Candidates, ", "))
}

func boundCandidates(names []string) []string {
	if len(names) > maxCandidateNames {
		return names[:maxCandidateNames]
	}
	return names
}

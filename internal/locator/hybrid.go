package locator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/powervm-tools/lparvol/internal/hmc"
)

// FeedClient is the read path of the hybrid transport.
type FeedClient interface {
	hmc.ResourceFetcher
	Search(ctx context.Context, resource, query string) ([]byte, error)
}

// Partition name fields diverge across controller schema versions, so
// entries are matched against an ordered list of aliases rather than a
// single field.
var (
	partitionNameAliases = []string{"PartitionName", "partitionName", "name", "Name"}
	partitionIDAliases   = []string{"PartitionID", "PartitionId", "LparId"}
)

// HybridLocator resolves identities from the HMC REST resource feeds,
// falling back to CLI queries for fields the feeds do not expose (next
// available slot, profile name) or deliver in the wrong shape (a resource
// UUID where a numeric partition id is needed).
type HybridLocator struct {
	feed FeedClient
	cli  *CLILocator
}

// NewHybridLocator builds a locator over the REST read path and the
// command session used for the remaining CLI queries.
func NewHybridLocator(feed FeedClient, session hmc.Session) *HybridLocator {
	return &HybridLocator{feed: feed, cli: NewCLILocator(session)}
}

// ManagedSystem resolves the managed system name to its resource UUID via
// quick search, trying the schema's historical name fields in order.
func (l *HybridLocator) ManagedSystem(ctx context.Context, name string) (ManagedSystemRef, error) {
	safe := strings.ReplaceAll(name, "'", `\'`)
	for _, pattern := range []string{"(SystemName=='%s')", "(Name=='%s')"} {
		body, err := l.feed.Search(ctx, "ManagedSystem", fmt.Sprintf(pattern, safe))
		if err != nil {
			// Older HMCs reject the query shapes they predate; try the
			// next alias unless the transport itself failed.
			var fetchErr *hmc.ResourceFetchError
			if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
				continue
			}
			return ManagedSystemRef{}, err
		}
		entries, err := hmc.ParseFeed(body)
		if err != nil {
			return ManagedSystemRef{}, fmt.Errorf("managed system search: %w", err)
		}
		if len(entries) > 0 {
			if handle := hmc.TrailingSegment(entries[0].SelfHref()); handle != "" {
				return ManagedSystemRef{Name: name, Handle: handle}, nil
			}
		}
	}
	return ManagedSystemRef{}, &ResourceNotFoundError{Kind: "managed system", Name: name}
}

// Partition resolves a partition from the managed system's LogicalPartition
// or VirtualIOServer feed. Entries are matched by exact name across the
// alias fields first, then case-insensitively. Slot and profile fields
// always come from CLI queries.
func (l *HybridLocator) Partition(ctx context.Context, ms ManagedSystemRef, name string, role Role) (PartitionInfo, error) {
	var info PartitionInfo

	collection := "LogicalPartition"
	if role == RoleStorage {
		collection = "VirtualIOServer"
	}

	body, err := l.feed.FetchResource(ctx, "/rest/api/uom/ManagedSystem/"+ms.Handle+"/"+collection)
	if err != nil {
		return info, err
	}
	entries, err := hmc.ParseFeed(body)
	if err != nil {
		return info, fmt.Errorf("%s feed: %w", collection, err)
	}

	entry := matchEntry(entries, name)
	if entry == nil {
		var seen []string
		for _, e := range entries {
			if n := e.Value(partitionNameAliases...); n != "" {
				seen = append(seen, n)
			}
		}
		return info, &ResourceNotFoundError{Kind: collection, Name: name, Candidates: boundCandidates(seen)}
	}

	info.UUID = hmc.TrailingSegment(entry.SelfHref())

	// The numeric partition id sometimes arrives in the feed; a value with
	// a dash is the resource UUID leaking through an old schema, which
	// chsyscfg will not accept.
	if raw := entry.Value(partitionIDAliases...); raw != "" && !strings.Contains(raw, "-") {
		if id, err := strconv.Atoi(raw); err == nil {
			info.ID = id
		}
	}

	cliInfo, err := l.cli.Partition(ctx, ms, name, role)
	if err != nil {
		// The feed already proved the partition exists; surface the CLI
		// failure rather than a not-found.
		var notFound *ResourceNotFoundError
		if errors.As(err, &notFound) {
			return info, fmt.Errorf("partition %s: CLI queries failed after feed match: %w", name, err)
		}
		return info, err
	}
	info.NextSlot = cliInfo.NextSlot
	info.ProfileName = cliInfo.ProfileName
	if info.ID == 0 {
		info.ID = cliInfo.ID
	}

	return info, nil
}

func matchEntry(entries []hmc.Entry, name string) *hmc.Entry {
	for i := range entries {
		if entries[i].MatchesName(name, partitionNameAliases) {
			return &entries[i]
		}
	}
	target := strings.ToLower(strings.TrimSpace(name))
	for i := range entries {
		if candidate := entries[i].Value(partitionNameAliases...); candidate != "" {
			if strings.ToLower(strings.TrimSpace(candidate)) == target {
				return &entries[i]
			}
		}
	}
	return nil
}

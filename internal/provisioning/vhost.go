package provisioning

import (
	"fmt"
	"strings"
)

// PartitionIDToken renders a numeric partition id the way the mapping
// listing embeds it: 8 hex digits, zero-padded, lowercase, 0x-prefixed.
func PartitionIDToken(id int) string {
	return fmt.Sprintf("0x%08x", id)
}

// ResolveVhost scans an adapter-mapping listing (lsmap -all -fmt ':') for
// the line whose content contains the partition id token and returns that
// line's first column, the vhost device name. The match is a
// case-insensitive substring match: the listing embeds the id inside a
// longer device path, not as an isolated field.
func ResolveVhost(listing, partitionToken string) (string, error) {
	token := strings.ToLower(partitionToken)
	for _, line := range strings.Split(listing, "\n") {
		if !strings.Contains(strings.ToLower(line), token) {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) > 0 {
			if vhost := strings.TrimSpace(fields[0]); vhost != "" {
				return vhost, nil
			}
		}
	}
	return "", &VhostNotFoundError{PartitionToken: partitionToken, Listing: listing}
}

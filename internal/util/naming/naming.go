package naming

// MaxVTDNameLen is the VIOS limit on virtual target device names.
const MaxVTDNameLen = 15

// VTDName returns the virtual target device name for a mapping. If explicit
// is non-empty it is used as-is (truncated to the VIOS limit); otherwise the
// name is derived from the partition name as <lpar>_vtd, with the partition
// part shortened first so the suffix always survives.
func VTDName(explicit, lparName string) string {
	if explicit != "" {
		return Truncate(explicit, MaxVTDNameLen)
	}
	base := lparName
	if len(base) > 11 {
		base = base[:11]
	}
	return Truncate(base+"_vtd", MaxVTDNameLen)
}

// Truncate returns s shortened to at most max bytes.
func Truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

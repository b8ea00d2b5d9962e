package naming

import "testing"

func TestVTDName(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		lpar     string
		expected string
	}{
		{
			name:     "derived from short lpar name",
			lpar:     "mylpar",
			expected: "mylpar_vtd",
		},
		{
			name:     "derived from long lpar name keeps suffix",
			lpar:     "averylonglparname",
			expected: "averylonglp_vtd",
		},
		{
			name:     "derived from exactly 11 chars",
			lpar:     "elevenchars",
			expected: "elevenchars_vtd",
		},
		{
			name:     "explicit short name used as-is",
			explicit: "boot_vtd",
			lpar:     "mylpar",
			expected: "boot_vtd",
		},
		{
			name:     "explicit long name truncated to 15",
			explicit: "a_very_long_vtd_name",
			lpar:     "mylpar",
			expected: "a_very_long_vtd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VTDName(tt.explicit, tt.lpar)
			if got != tt.expected {
				t.Errorf("VTDName(%q, %q) = %q, want %q", tt.explicit, tt.lpar, got, tt.expected)
			}
			if len(got) > MaxVTDNameLen {
				t.Errorf("VTDName(%q, %q) = %q exceeds %d chars", tt.explicit, tt.lpar, got, MaxVTDNameLen)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc" {
		t.Errorf("Truncate = %q, want %q", got, "abc")
	}
	if got := Truncate("abc", 3); got != "abc" {
		t.Errorf("Truncate = %q, want %q", got, "abc")
	}
	if got := Truncate("ab", 3); got != "ab" {
		t.Errorf("Truncate = %q, want %q", got, "ab")
	}
}

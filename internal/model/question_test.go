package model

import "testing"

func TestParseOptionLabel(t *testing.T) {
	for _, raw := range []string{"A", "B", "C", "D"} {
		label, err := ParseOptionLabel(raw)
		if err != nil {
			t.Fatalf("ParseOptionLabel(%q): %v", raw, err)
		}
		if string(label) != raw {
			t.Fatalf("label = %q, want %q", label, raw)
		}
	}
}

func TestParseOptionLabelRejectsOutsiders(t *testing.T) {
	for _, raw := range []string{"", "E", "a", "AB", "1"} {
		if _, err := ParseOptionLabel(raw); err == nil {
			t.Fatalf("ParseOptionLabel(%q) accepted an invalid label", raw)
		}
	}
}

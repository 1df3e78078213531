package model

import (
	"strings"
	"testing"
)

func TestKeyMaterialRoundTrip(t *testing.T) {
	prefix, secret := NewKeyMaterial()
	if prefix == "" || secret == "" {
		t.Fatalf("expected non-empty key material, got %q / %q", prefix, secret)
	}

	token := FormatKey(prefix, secret)
	if !strings.HasPrefix(token, "okj_") {
		t.Fatalf("expected okj_ prefix, got %q", token)
	}

	gotPrefix, gotSecret, ok := ParseKey(token)
	if !ok {
		t.Fatalf("expected token %q to parse", token)
	}
	if gotPrefix != prefix || gotSecret != secret {
		t.Fatalf("round trip mismatch: got %q/%q, want %q/%q", gotPrefix, gotSecret, prefix, secret)
	}
}

func TestKeyMaterialUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		prefix, _ := NewKeyMaterial()
		if seen[prefix] {
			t.Fatalf("duplicate prefix generated: %q", prefix)
		}
		seen[prefix] = true
	}
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"wrong prefix", "sk_abc.def"},
		{"no separator", "okj_abcdef"},
		{"empty prefix", "okj_.secret"},
		{"empty secret", "okj_abc."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, ok := ParseKey(tt.token); ok {
				t.Fatalf("expected %q to be rejected", tt.token)
			}
		})
	}
}

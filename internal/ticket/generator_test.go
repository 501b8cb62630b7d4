package ticket

import (
	"math/rand"
	"strings"
	"testing"
)

func TestPrefixDeterministicUnderSeededSource(t *testing.T) {
	a := NewGenerator(rand.New(rand.NewSource(7)))
	b := NewGenerator(rand.New(rand.NewSource(7)))

	for i := 0; i < 20; i++ {
		pa, pb := a.Prefix(), b.Prefix()
		if pa != pb {
			t.Fatalf("prefix %d diverged: %q vs %q", i, pa, pb)
		}
		if len(pa) != 1 || !strings.Contains(prefixAlphabet, pa) {
			t.Fatalf("prefix %q outside alphabet %q", pa, prefixAlphabet)
		}
	}
}

func TestVerificationTokenShape(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(1)))

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := g.VerificationToken()
		if len(token) != tokenLength {
			t.Fatalf("token %q has length %d, want %d", token, len(token), tokenLength)
		}
		for _, r := range token {
			if !strings.ContainsRune(tokenAlphabet, r) {
				t.Fatalf("token %q contains %q outside alphabet", token, r)
			}
		}
		if seen[token] {
			t.Fatalf("token %q repeated within 100 draws", token)
		}
		seen[token] = true
	}
}

func TestFormatCode(t *testing.T) {
	cases := []struct {
		prefix string
		seq    int64
		want   string
	}{
		{"B", 42, "B-042"},
		{"A", 1, "A-001"},
		{"D", 999, "D-999"},
		{"C", 1234, "C-1234"},
	}
	for _, tt := range cases {
		if got := FormatCode(tt.prefix, tt.seq); got != tt.want {
			t.Fatalf("FormatCode(%q, %d)=%q, want %q", tt.prefix, tt.seq, got, tt.want)
		}
	}
}

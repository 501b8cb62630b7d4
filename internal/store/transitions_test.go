package store

import "testing"

func TestValidTransition(t *testing.T) {
	cases := []struct {
		action string
		from   string
		valid  bool
	}{
		{"call", "waiting", true},
		{"call", "lost", false},
		{"attend", "called", true},
		{"attend", "waiting", false},
		{"finish", "attended", true},
		{"finish", "called", false},
		{"mark_lost", "waiting", true},
		{"mark_lost", "called", true},
		{"mark_lost", "attended", true},
		{"mark_lost", "finished", false},
		{"reactivate", "lost", true},
		{"reactivate", "waiting", false},
		{"reactivate", "finished", false},
		{"unknown", "waiting", false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.action, tt.from); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q)=%v, want %v", tt.action, tt.from, got, tt.valid)
		}
	}
}

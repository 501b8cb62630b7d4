// Package ticket generates the human-facing pieces of a turn: the display
// code prefix spoken aloud at the counter and the opaque verification token
// checked by the scan channel.
package ticket

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const (
	prefixAlphabet = "ABCD"
	tokenAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
	tokenLength    = 12

	// SequencePad is the zero-padding width of the numeric part of a
	// display code ("B-042").
	SequencePad = 3
)

// Generator produces code prefixes and verification tokens. The randomness
// source is injected so tests can fix the sequence of generated codes.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// Prefix returns one letter from the display-code alphabet.
func (g *Generator) Prefix() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return string(prefixAlphabet[g.rng.Intn(len(prefixAlphabet))])
}

// VerificationToken returns a random lowercase alphanumeric token. The token
// space is large enough that collisions are negligible; it is not a secret.
func (g *Generator) VerificationToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	buf := make([]byte, tokenLength)
	for i := range buf {
		buf[i] = tokenAlphabet[g.rng.Intn(len(tokenAlphabet))]
	}
	return string(buf)
}

// FormatCode assembles a display code from a prefix and a sequence number.
func FormatCode(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, SequencePad, seq)
}

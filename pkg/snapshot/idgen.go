package snapshot

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGen mints record IDs for migration-extracted records. The generator is
// injected into the chain so tests stay deterministic and concurrent chains
// never share counters.
type IDGen interface {
	// Next returns a fresh ID for the given record kind prefix.
	Next(prefix string) string
}

// SeqIDGen mints sequential "prefix-N" IDs with one counter per prefix.
// This is the generator the migration chain uses by default: extracted
// records get stable, readable IDs, and re-running a migration on the same
// input with a fresh generator reproduces them exactly.
type SeqIDGen struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewSeqIDGen creates a sequential generator with all counters at zero.
func NewSeqIDGen() *SeqIDGen {
	return &SeqIDGen{counters: make(map[string]int)}
}

// Next returns the next "prefix-N" ID for the prefix.
func (g *SeqIDGen) Next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[prefix]++
	return fmt.Sprintf("%s-%d", prefix, g.counters[prefix])
}

// UUIDGen mints UUID v7 IDs, ignoring the prefix. Used where IDs must be
// globally unique rather than readable.
type UUIDGen struct{}

// Next returns a UUID v7 string.
func (UUIDGen) Next(string) string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

package engine

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces performance identifiers.
// Implemented by CounterGenerator (default), UUIDv7Generator and FixedGenerator.
type IDGenerator interface {
	Generate() string
}

// resetter is implemented by generators whose sequence can restart.
type resetter interface {
	Reset()
}

// CounterGenerator yields "<prefix>-1", "<prefix>-2", ... and is owned by a
// single Registry, so two choreographers never share a counter.
type CounterGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewCounterGenerator creates a counter. An empty prefix becomes "perf".
func NewCounterGenerator(prefix string) *CounterGenerator {
	if prefix == "" {
		prefix = "perf"
	}
	return &CounterGenerator{prefix: prefix}
}

// Generate returns the next identifier.
func (g *CounterGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.prefix + "-" + strconv.Itoa(g.n)
}

// Reset restarts the sequence at 1.
func (g *CounterGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers, for hosts that
// journal several sessions side by side.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined identifiers for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("dispatch", "alert")
//	gen.Generate() // "dispatch"
//	gen.Generate() // "alert"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed; a test that starts more
// performances than it planned for is misconfigured.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all ids exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}

// Reset rewinds to the first id.
func (g *FixedGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.idx = 0
}

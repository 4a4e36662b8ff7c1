package engine

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/command"
	"github.com/roach88/choreo/internal/ir"
)

func TestCounterGenerator_Sequence(t *testing.T) {
	gen := NewCounterGenerator("")

	assert.Equal(t, "perf-1", gen.Generate())
	assert.Equal(t, "perf-2", gen.Generate())

	gen.Reset()
	assert.Equal(t, "perf-1", gen.Generate())
}

func TestCounterGenerator_Prefix(t *testing.T) {
	gen := NewCounterGenerator("p")
	assert.Equal(t, "p-1", gen.Generate())
}

func TestCounterGenerator_Independent(t *testing.T) {
	a := NewCounterGenerator("")
	b := NewCounterGenerator("")

	a.Generate()
	a.Generate()
	assert.Equal(t, "perf-1", b.Generate())
}

func TestUUIDv7Generator_ValidFormat(t *testing.T) {
	gen := UUIDv7Generator{}
	token := gen.Generate()

	parsed, err := uuid.Parse(token)
	require.NoError(t, err, "token should be valid UUID")
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, token)
}

func TestUUIDv7Generator_Concurrent(t *testing.T) {
	gen := UUIDv7Generator{}
	const goroutines = 100

	tokens := make(chan string, goroutines)
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens <- gen.Generate()
		}()
	}

	wg.Wait()
	close(tokens)

	seen := make(map[string]bool)
	for token := range tokens {
		require.False(t, seen[token], "duplicate token generated")
		seen[token] = true
	}
	assert.Equal(t, goroutines, len(seen))
}

func TestFixedGenerator_Sequential(t *testing.T) {
	gen := NewFixedGenerator("a", "b")

	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() {
		gen.Generate()
	}, "should panic when all ids exhausted")

	gen.Reset()
	assert.Equal(t, "a", gen.Generate())
}

func TestFixedGenerator_EmptyTokens(t *testing.T) {
	gen := NewFixedGenerator()

	assert.Panics(t, func() {
		gen.Generate()
	}, "should panic when no ids provided")
}

func TestChoreographer_WithUUIDv7(t *testing.T) {
	c := New(command.Discard, WithIDGenerator(UUIDv7Generator{}), WithLogger(discardLogger()))
	require.NoError(t, c.Register(ir.Choreography{ID: "x", On: "go", Steps: []ir.Step{ir.Animated("m", "e", nil, 10, "")}}))

	ids := c.HandleSignal(ir.Signal{Type: "go"}, "")
	require.Len(t, ids, 1)

	parsed, err := uuid.Parse(ids[0])
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

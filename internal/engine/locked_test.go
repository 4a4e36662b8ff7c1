package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/command"
	"github.com/roach88/choreo/internal/ir"
)

func TestLocked_ConcurrentSignalsAndTicks(t *testing.T) {
	rec := command.NewRecorder()
	l := NewLocked(New(rec, WithLogger(discardLogger())))
	require.NoError(t, l.Register(animatedDef("a", 10)))
	require.NoError(t, l.RegisterAll([]ir.Choreography{{ID: "b", On: "other"}}))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			l.HandleSignal(signal("go"), "")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			l.Tick(1)
		}
	}()
	wg.Wait()

	for l.ActivePerformanceCount() > 0 {
		l.Tick(10)
	}
	assert.Empty(t, l.Performances())
	assert.Equal(t, 100, rec.Count(command.KindStart))
	assert.Equal(t, 100, rec.Count(command.KindComplete))
}

package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/command"
	"github.com/roach88/choreo/internal/ir"
)

func animatedDef(id string, durationMs float64) ir.Choreography {
	return ir.Choreography{ID: id, On: "go", Steps: []ir.Step{animated(id, durationMs)}}
}

func signal(typ string) ir.Signal {
	return ir.Signal{Type: typ}
}

func TestLoop_AppliesEventsInOrder(t *testing.T) {
	c, rec := newTestChoreographer(t, animatedDef("a", 100))
	loop := NewLoop(c)

	require.True(t, loop.Signal(signal("go"), ""))
	loop.Tick(50)
	loop.Tick(50)
	assert.Equal(t, 3, loop.Len())

	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()
	loop.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}

	assert.Equal(t, []string{
		"start perf-1 a e easing=linear duration=100",
		"update perf-1 a e progress=0.5",
		"complete perf-1 a e",
	}, rec.Lines())
	assert.False(t, loop.Signal(signal("go"), ""), "stopped loop rejects events")
}

func TestLoop_StopsOnContextCancel(t *testing.T) {
	c, _ := newTestChoreographer(t)
	loop := NewLoop(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestLoop_ConcurrentProducers(t *testing.T) {
	c, rec := newTestChoreographer(t, ir.Choreography{ID: "blip", On: "go", Steps: []ir.Step{instant("blip")}})
	loop := NewLoop(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				loop.Signal(signal("go"), "")
			}
		}()
	}
	wg.Wait()
	loop.Stop()
	require.NoError(t, <-done)

	assert.Equal(t, 200, rec.Count(command.KindExecute))
}

func TestLoop_UnknownEventType(t *testing.T) {
	c, _ := newTestChoreographer(t)
	loop := NewLoop(c)
	assert.Error(t, loop.apply(Event{Type: EventType(42)}))
}

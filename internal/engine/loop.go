package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/choreo/internal/ir"
)

// Loop is the single-owner alternative to Locked: producers enqueue signals
// and ticks from any goroutine, and one goroutine running Run applies them
// to the Choreographer in FIFO order.
//
// Thread-safety model:
//   - Signal(), Tick(), Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - the wrapped Choreographer must not be used directly while Run is active
type Loop struct {
	c      *Choreographer
	queue  *eventQueue
	logger *slog.Logger
}

// NewLoop wraps c.
func NewLoop(c *Choreographer) *Loop {
	return &Loop{c: c, queue: newEventQueue(), logger: c.logger}
}

// Enqueue submits an event. Returns false once the loop has been stopped.
func (l *Loop) Enqueue(ev Event) bool {
	return l.queue.Enqueue(ev)
}

// Signal enqueues a signal event.
func (l *Loop) Signal(sig ir.Signal, correlationID string) bool {
	return l.Enqueue(Event{Type: EventTypeSignal, Signal: sig, CorrelationID: correlationID})
}

// Tick enqueues a tick event, so a FrameClock can drive a Loop.
func (l *Loop) Tick(deltaMs float64) {
	l.Enqueue(Event{Type: EventTypeTick, DeltaMs: deltaMs})
}

// Len returns the number of queued events.
func (l *Loop) Len() int {
	return l.queue.Len()
}

// Run applies queued events until ctx is cancelled or Stop is called and the
// queue has drained. Returns ctx.Err() on cancellation, nil after Stop.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("loop starting")

	for {
		ev, ok := l.queue.TryDequeue()
		if ok {
			if err := l.apply(ev); err != nil {
				l.logger.Error("event dropped", "type", int(ev.Type), "error", err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Info("loop stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case <-l.queue.Wait():
			// The signal channel closes with the queue, so this fires
			// immediately once stopped.
			if l.queue.Len() == 0 && l.closed() {
				l.logger.Info("loop stopping: queue closed")
				return nil
			}
		}
	}
}

func (l *Loop) closed() bool {
	l.queue.mu.Lock()
	defer l.queue.mu.Unlock()
	return l.queue.closed
}

// Stop closes the queue. Run returns after draining what was already queued.
func (l *Loop) Stop() {
	l.queue.Close()
}

func (l *Loop) apply(ev Event) error {
	switch ev.Type {
	case EventTypeSignal:
		l.c.HandleSignal(ev.Signal, ev.CorrelationID)
		return nil
	case EventTypeTick:
		l.c.Tick(ev.DeltaMs)
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", ev.Type)
	}
}

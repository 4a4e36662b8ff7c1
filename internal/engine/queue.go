package engine

import (
	"sync"

	"github.com/roach88/choreo/internal/ir"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeSignal delivers a signal to HandleSignal.
	EventTypeSignal EventType = iota + 1
	// EventTypeTick advances the clock.
	EventTypeTick
)

// Event is one queued call into the Choreographer.
type Event struct {
	Type          EventType
	Signal        ir.Signal
	CorrelationID string
	DeltaMs       float64
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so that producers (transport handlers, frame
// clocks) never block on a slow sink.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Loop (prevents goroutine hangs on context cancellation).
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: a buffer of 1 coalesces multiple wakeups.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Zero the slot so the payload can be collected.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

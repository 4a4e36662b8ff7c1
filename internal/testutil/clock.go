package testutil

import "sync"

// TickRecorder is a Ticker that remembers every delta it receives, for
// asserting how a clock splits time into ticks.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type TickRecorder struct {
	mu     sync.Mutex
	deltas []float64
}

// NewTickRecorder creates an empty recorder.
func NewTickRecorder() *TickRecorder {
	return &TickRecorder{}
}

// Tick records deltaMs.
func (r *TickRecorder) Tick(deltaMs float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, deltaMs)
}

// Deltas returns a copy of the recorded deltas in order.
func (r *TickRecorder) Deltas() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.deltas))
	copy(out, r.deltas)
	return out
}

// Count returns the number of recorded ticks.
func (r *TickRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deltas)
}

// Total returns the sum of the recorded deltas.
func (r *TickRecorder) Total() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, d := range r.deltas {
		sum += d
	}
	return sum
}

// Reset forgets every recorded tick.
//
// Used for test reuse.
func (r *TickRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = nil
}

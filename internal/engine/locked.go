package engine

import (
	"sync"

	"github.com/roach88/choreo/internal/ir"
)

// Locked serializes every call into a Choreographer with a mutex, for hosts
// that receive signals on one goroutine and drive the clock from another.
// Sinks run while the lock is held and must not call back into Locked.
type Locked struct {
	mu sync.Mutex
	c  *Choreographer
}

// NewLocked wraps c. The caller must not use c directly afterwards.
func NewLocked(c *Choreographer) *Locked {
	return &Locked{c: c}
}

// Register calls Choreographer.Register under the lock.
func (l *Locked) Register(def ir.Choreography) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Register(def)
}

// RegisterAll calls Choreographer.RegisterAll under the lock.
func (l *Locked) RegisterAll(defs []ir.Choreography) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.RegisterAll(defs)
}

// HandleSignal calls Choreographer.HandleSignal under the lock.
func (l *Locked) HandleSignal(sig ir.Signal, correlationID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.HandleSignal(sig, correlationID)
}

// Tick calls Choreographer.Tick under the lock.
func (l *Locked) Tick(deltaMs float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.Tick(deltaMs)
}

// ActivePerformanceCount calls Choreographer.ActivePerformanceCount under the lock.
func (l *Locked) ActivePerformanceCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.ActivePerformanceCount()
}

// Performances calls Choreographer.Performances under the lock.
func (l *Locked) Performances() []PerformanceInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Performances()
}

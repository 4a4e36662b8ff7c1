package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Ticker is anything that can be advanced by a clock. Implemented by
// Choreographer, Locked and Loop.
type Ticker interface {
	Tick(deltaMs float64)
}

// ManualClock is the deterministic clock: time moves only when the caller
// says so. Advance returns after every resulting command has been emitted.
type ManualClock struct {
	target  Ticker
	frameMs float64
	elapsed float64
}

// NewManualClock creates a clock driving target. frameMs is the size of each
// internal tick; frameMs <= 0 turns every Advance into a single tick.
func NewManualClock(target Ticker, frameMs float64) *ManualClock {
	return &ManualClock{target: target, frameMs: frameMs}
}

// Advance moves time forward by ms, split into ticks of at most frameMs.
// The final tick carries the remainder, so the ticks always sum to ms.
// Advance(0) (or any ms <= 0) performs one tick of that size.
func (c *ManualClock) Advance(ms float64) {
	if ms <= 0 || c.frameMs <= 0 {
		c.Tick(ms)
		return
	}
	remaining := ms
	for remaining > 0 {
		step := min(c.frameMs, remaining)
		c.Tick(step)
		remaining -= step
	}
}

// Tick forwards exactly one tick.
func (c *ManualClock) Tick(deltaMs float64) {
	if deltaMs > 0 {
		c.elapsed += deltaMs
	}
	c.target.Tick(deltaMs)
}

// Elapsed returns the cumulative time advanced.
func (c *ManualClock) Elapsed() float64 {
	return c.elapsed
}

// FrameMs returns the internal tick size.
func (c *ManualClock) FrameMs() float64 {
	return c.frameMs
}

// Reset sets Elapsed back to 0. It does not touch the target.
func (c *ManualClock) Reset() {
	c.elapsed = 0
}

// Frame clock defaults.
const (
	DefaultFPS        = 60
	DefaultMaxDeltaMs = 250
)

// FrameClock is the production clock: it converts frame timestamps into
// tick deltas. A host's render loop calls Frame once per frame, or Run paces
// frames itself.
//
// A long stall (debugger, sleeping laptop) would otherwise complete every
// animation in one jump, so each delta is clamped to the max delta.
type FrameClock struct {
	target   Ticker
	fps      float64
	maxDelta float64
	now      func() time.Time

	mu      sync.Mutex
	last    time.Time
	started bool
	frames  int64
}

// FrameOption configures a FrameClock.
type FrameOption func(*FrameClock)

// WithFPS sets the frame rate used by Run. Default: 60.
func WithFPS(fps float64) FrameOption {
	return func(c *FrameClock) {
		c.fps = fps
	}
}

// WithMaxDelta sets the per-frame delta clamp in ms. Default: 250.
// A value <= 0 disables the clamp.
func WithMaxDelta(ms float64) FrameOption {
	return func(c *FrameClock) {
		c.maxDelta = ms
	}
}

// WithNow replaces time.Now, for tests.
func WithNow(now func() time.Time) FrameOption {
	return func(c *FrameClock) {
		c.now = now
	}
}

// NewFrameClock creates a frame clock driving target.
func NewFrameClock(target Ticker, opts ...FrameOption) *FrameClock {
	c := &FrameClock{
		target:   target,
		fps:      DefaultFPS,
		maxDelta: DefaultMaxDeltaMs,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Frame ticks the target with the time since the previous frame and
// returns the delta used. The first frame only records its timestamp and
// ticks with 0. A timestamp earlier than the previous one ticks with 0.
func (c *FrameClock) Frame(now time.Time) float64 {
	c.mu.Lock()
	var delta float64
	if c.started {
		delta = float64(now.Sub(c.last)) / float64(time.Millisecond)
		if delta < 0 {
			delta = 0
		}
		if c.maxDelta > 0 && delta > c.maxDelta {
			delta = c.maxDelta
		}
	}
	if !c.started || now.After(c.last) {
		c.last = now
	}
	c.started = true
	c.frames++
	c.mu.Unlock()

	c.target.Tick(delta)
	return delta
}

// Frames returns how many frames have been processed.
func (c *FrameClock) Frames() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Run calls Frame at the configured rate until ctx is done.
// Returns ctx.Err() on cancellation.
func (c *FrameClock) Run(ctx context.Context) error {
	fps := c.fps
	if fps <= 0 {
		fps = DefaultFPS
	}
	limiter := rate.NewLimiter(rate.Limit(fps), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			// Wait fails early when the next frame would land past the
			// deadline; report it as the context's own error.
			<-ctx.Done()
			return ctx.Err()
		}
		c.Frame(c.now())
	}
}

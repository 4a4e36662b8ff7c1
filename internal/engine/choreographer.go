package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/choreo/internal/command"
	"github.com/roach88/choreo/internal/easing"
	"github.com/roach88/choreo/internal/ir"
)

// registered is a validated choreography with its flattened step tree.
type registered struct {
	def   ir.Choreography
	arena *ir.Arena
}

// Choreographer is the entry point of the runtime: it holds the registered
// choreographies, dispatches signals to them and forwards ticks to the
// performance registry.
//
// INVARIANTS:
//   - defs order NEVER changes after registration; it breaks ties between
//     choreographies matching the same signal
//   - choreography ids are unique
//   - a definition that fails validation is never visible to HandleSignal
type Choreographer struct {
	defs     []*registered
	byType   map[string][]*registered
	byID     map[string]*registered
	registry *Registry

	logger  *slog.Logger
	limits  ir.Limits
	ids     IDGenerator
	easings *easing.Table
}

// Option configures a Choreographer.
type Option func(*Choreographer)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Choreographer) {
		c.logger = logger
	}
}

// WithMaxDepth bounds onArrive nesting per choreography.
//
// Default: 64 (ir.DefaultMaxDepth)
func WithMaxDepth(depth int) Option {
	return func(c *Choreographer) {
		c.limits.MaxDepth = depth
	}
}

// WithMaxSteps bounds the number of steps per choreography.
//
// Default: 4096 (ir.DefaultMaxSteps)
// Use WithMaxSteps(10) for testing limit enforcement.
func WithMaxSteps(steps int) Option {
	return func(c *Choreographer) {
		c.limits.MaxSteps = steps
	}
}

// WithIDGenerator replaces the default per-instance counter ("perf-1", ...).
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *Choreographer) {
		c.ids = gen
	}
}

// WithEasings replaces the easing table. Default: easing.Default().
func WithEasings(table *easing.Table) Option {
	return func(c *Choreographer) {
		c.easings = table
	}
}

// New creates a Choreographer emitting to sink. A nil sink discards commands.
func New(sink command.Sink, opts ...Option) *Choreographer {
	c := &Choreographer{
		byType: make(map[string][]*registered),
		byID:   make(map[string]*registered),
		logger: slog.Default(),
		limits: ir.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.ids == nil {
		c.ids = NewCounterGenerator("")
	}
	c.registry = NewRegistry(sink, c.ids, c.easings, c.logger)
	return c
}

// Register validates and stores one choreography.
func (c *Choreographer) Register(def ir.Choreography) error {
	return c.RegisterAll([]ir.Choreography{def})
}

// RegisterAll validates every choreography and stores them in order. If any
// of them is rejected, none are stored.
func (c *Choreographer) RegisterAll(defs []ir.Choreography) error {
	prepared := make([]*registered, 0, len(defs))
	seen := make(map[string]bool, len(defs))

	for _, def := range defs {
		reg, err := c.prepare(def)
		if err != nil {
			return err
		}
		if seen[def.ID] {
			return &RegistrationError{
				Code:           ErrCodeDuplicateID,
				Message:        "choreography id repeated in batch",
				ChoreographyID: def.ID,
			}
		}
		seen[def.ID] = true
		prepared = append(prepared, reg)
	}

	for _, reg := range prepared {
		c.defs = append(c.defs, reg)
		c.byType[reg.def.On] = append(c.byType[reg.def.On], reg)
		c.byID[reg.def.ID] = reg
		c.logger.Debug("choreography registered",
			"choreography_id", reg.def.ID,
			"on", reg.def.On,
			"interrupts", reg.def.Interrupts,
			"steps", reg.arena.Len(),
		)
	}
	return nil
}

func (c *Choreographer) prepare(def ir.Choreography) (*registered, error) {
	if def.ID == "" {
		return nil, &RegistrationError{Code: ErrCodeMissingID, Message: "choreography id is required"}
	}
	if def.On == "" {
		return nil, &RegistrationError{
			Code:           ErrCodeMissingSignalType,
			Message:        "choreography must name the signal type it reacts to",
			ChoreographyID: def.ID,
		}
	}
	if _, exists := c.byID[def.ID]; exists {
		return nil, &RegistrationError{
			Code:           ErrCodeDuplicateID,
			Message:        "choreography id already registered",
			ChoreographyID: def.ID,
		}
	}

	arena, err := ir.BuildArena(def.Steps, c.limits)
	if err != nil {
		var te *ir.TreeError
		if errors.As(err, &te) {
			return nil, newTreeError(def.ID, te)
		}
		return nil, fmt.Errorf("register %s: %w", def.ID, err)
	}
	return &registered{def: def, arena: arena}, nil
}

// HandleSignal starts one performance per matching choreography, in
// registration order, and returns their ids. A correlationID of "" means the
// signal carries none. A signal nothing matches is ignored.
//
// An interrupting match first interrupts every running performance with the
// same correlation id, including ones started earlier in this same call.
func (c *Choreographer) HandleSignal(sig ir.Signal, correlationID string) []string {
	var started []string

	for _, reg := range c.byType[sig.Type] {
		if reg.def.When != nil && !reg.def.When.Match(sig.Payload) {
			continue
		}
		c.logger.Debug("choreography matched",
			"choreography_id", reg.def.ID,
			"signal", sig.Type,
			"correlation_id", correlationID,
		)

		if reg.def.Interrupts && correlationID != "" {
			if n := c.registry.InterruptCorrelated(correlationID, reg.def.ID); n > 0 {
				c.logger.Info("performances interrupted",
					"correlation_id", correlationID,
					"interrupted_by", reg.def.ID,
					"count", n,
				)
			}
		}

		id := c.registry.Start(reg.def.ID, reg.arena, sig.Payload.Clone(), correlationID)
		started = append(started, id)
	}

	if len(started) == 0 {
		c.logger.Debug("signal ignored: no choreography matched", "signal", sig.Type)
	}
	return started
}

// Tick advances every running performance by deltaMs.
func (c *Choreographer) Tick(deltaMs float64) {
	c.registry.Tick(deltaMs)
}

// ActivePerformanceCount returns the number of running performances.
func (c *Choreographer) ActivePerformanceCount() int {
	return c.registry.Active()
}

// Performances returns snapshots of the running performances in creation order.
func (c *Choreographer) Performances() []PerformanceInfo {
	return c.registry.Snapshot()
}

// Performance returns a snapshot of one running performance.
func (c *Choreographer) Performance(id string) (PerformanceInfo, bool) {
	return c.registry.Get(id)
}

// Choreographies returns the registered definitions in registration order.
func (c *Choreographer) Choreographies() []ir.Choreography {
	out := make([]ir.Choreography, len(c.defs))
	for i, reg := range c.defs {
		out[i] = reg.def
	}
	return out
}

// DefinitionsHash identifies the registered definitions; see ir.DefinitionsHash.
func (c *Choreographer) DefinitionsHash() (string, error) {
	return ir.DefinitionsHash(c.Choreographies())
}

// Reset discards every performance (emitting nothing) and restarts the id and
// sequence counters. Registered choreographies are kept.
func (c *Choreographer) Reset() {
	c.registry.Reset()
}

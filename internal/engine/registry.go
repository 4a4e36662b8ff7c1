package engine

import (
	"log/slog"
	"math"
	"slices"

	"github.com/roach88/choreo/internal/command"
	"github.com/roach88/choreo/internal/easing"
	"github.com/roach88/choreo/internal/ir"
)

// Registry owns every running performance, indexed by id and by correlation
// id, and is the only place performance state changes.
//
// INVARIANTS:
//   - perfs holds exactly the running performances, in creation order
//   - a performance leaves every index in the same call that ends it
//   - Active() == len(perfs)
//
// Not safe for concurrent use; see Locked and Loop.
type Registry struct {
	perfs         []*performance
	byID          map[string]*performance
	byCorrelation map[string][]*performance

	sink     command.Sink
	seq      *command.Sequencer
	ids      IDGenerator
	easings  *easing.Table
	resolver Resolver
	logger   *slog.Logger
}

// NewRegistry creates an empty registry emitting to sink.
func NewRegistry(sink command.Sink, ids IDGenerator, easings *easing.Table, logger *slog.Logger) *Registry {
	if sink == nil {
		sink = command.Discard
	}
	if ids == nil {
		ids = NewCounterGenerator("")
	}
	if easings == nil {
		easings = easing.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byID:          make(map[string]*performance),
		byCorrelation: make(map[string][]*performance),
		sink:          sink,
		seq:           command.NewSequencer(),
		ids:           ids,
		easings:       easings,
		logger:        logger,
	}
}

func (r *Registry) emit(c command.Command) {
	c.Seq = r.seq.Next()
	r.sink.Emit(c)
}

// Start creates a performance for a matched choreography and activates its
// root steps. The returned id is valid even if the performance completed
// during activation.
func (r *Registry) Start(choreographyID string, arena *ir.Arena, payload ir.Object, correlationID string) string {
	p := &performance{
		id:             r.ids.Generate(),
		choreographyID: choreographyID,
		correlationID:  correlationID,
		originPayload:  payload,
		status:         StatusRunning,
		arena:          arena,
	}
	r.perfs = append(r.perfs, p)
	r.byID[p.id] = p
	if correlationID != "" {
		r.byCorrelation[correlationID] = append(r.byCorrelation[correlationID], p)
	}

	r.logger.Info("performance started",
		"performance_id", p.id,
		"choreography_id", choreographyID,
		"correlation_id", correlationID,
	)

	if arena != nil {
		r.activate(p, arena.Roots)
	}
	if len(p.branches) == 0 {
		r.finish(p, StatusCompleted)
	}
	return p.id
}

// activate starts a set of sibling steps. Instant steps emit execute and
// queue their children immediately; animated steps emit start and become
// live branches. The walk is pre-order with an explicit stack, so siblings
// keep declaration order and deep chains of instant steps cost no recursion.
func (r *Registry) activate(p *performance, nodes []int) {
	stack := make([]int, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, nodes[i])
	}

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := p.arena.Node(idx)

		params, unresolved := r.resolver.Resolve(n.Params, p.originPayload)
		if len(unresolved) > 0 {
			r.logger.Warn("unresolved signal reference",
				"performance_id", p.id,
				"choreography_id", p.choreographyID,
				"path", n.Path,
				"params", unresolved,
			)
		}

		if n.Animated {
			ease, name := r.easings.Lookup(n.Easing)
			r.emit(command.Command{
				Kind:          command.KindStart,
				PerformanceID: p.id,
				Action:        n.Action,
				Entity:        n.Entity,
				Params:        params,
				Easing:        name,
				DurationMs:    n.Duration,
			})
			p.branches = append(p.branches, &stepRun{
				node:       idx,
				durationMs: n.Duration,
				ease:       ease,
			})
			continue
		}

		r.emit(command.Command{
			Kind:          command.KindExecute,
			PerformanceID: p.id,
			Action:        n.Action,
			Entity:        n.Entity,
			Params:        params,
		})
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Tick advances every live branch by deltaMs. Negative or NaN deltas are
// treated as 0.
//
// Each branch present when the tick begins emits exactly one of update or
// complete. Children of a completed branch activate within this call, but
// any branch they start is first advanced by the next tick.
func (r *Registry) Tick(deltaMs float64) {
	if deltaMs < 0 || math.IsNaN(deltaMs) {
		r.logger.Warn("clamping invalid tick delta", "delta_ms", deltaMs)
		deltaMs = 0
	}

	for _, p := range slices.Clone(r.perfs) {
		if p.status != StatusRunning {
			continue
		}
		live := p.branches
		p.branches = make([]*stepRun, 0, len(live))

		for _, b := range live {
			b.elapsedMs += deltaMs
			t, progress := b.progress()
			n := p.arena.Node(b.node)

			if t < 1 {
				r.emit(command.Command{
					Kind:          command.KindUpdate,
					PerformanceID: p.id,
					Action:        n.Action,
					Entity:        n.Entity,
					Progress:      progress,
				})
				p.branches = append(p.branches, b)
				continue
			}

			r.emit(command.Command{
				Kind:          command.KindComplete,
				PerformanceID: p.id,
				Action:        n.Action,
				Entity:        n.Entity,
			})
			r.logger.Debug("branch completed",
				"performance_id", p.id,
				"path", n.Path,
				"elapsed_ms", b.elapsedMs,
			)
			r.activate(p, n.Children)
		}

		if len(p.branches) == 0 {
			r.finish(p, StatusCompleted)
		}
	}
}

// InterruptCorrelated interrupts every running performance carrying
// correlationID, oldest first, and returns how many were interrupted.
// Each emits exactly one interrupt command and no complete commands.
func (r *Registry) InterruptCorrelated(correlationID, interruptedBy string) int {
	if correlationID == "" {
		return 0
	}
	targets := slices.Clone(r.byCorrelation[correlationID])
	for _, p := range targets {
		r.emit(command.Command{
			Kind:          command.KindInterrupt,
			PerformanceID: p.id,
			CorrelationID: correlationID,
			InterruptedBy: interruptedBy,
		})
		r.finish(p, StatusInterrupted)
	}
	return len(targets)
}

// finish sets the terminal status and drops p from every index.
func (r *Registry) finish(p *performance, status Status) {
	p.status = status
	discarded := len(p.branches)
	p.branches = nil

	r.perfs = slices.DeleteFunc(r.perfs, func(q *performance) bool { return q == p })
	delete(r.byID, p.id)
	if p.correlationID != "" {
		rest := slices.DeleteFunc(r.byCorrelation[p.correlationID], func(q *performance) bool { return q == p })
		if len(rest) == 0 {
			delete(r.byCorrelation, p.correlationID)
		} else {
			r.byCorrelation[p.correlationID] = rest
		}
	}

	r.logger.Info("performance "+status.String(),
		"performance_id", p.id,
		"choreography_id", p.choreographyID,
		"correlation_id", p.correlationID,
		"discarded_branches", discarded,
	)
}

// Active returns the number of running performances.
func (r *Registry) Active() int {
	return len(r.perfs)
}

// Get returns a snapshot of the running performance with the given id.
func (r *Registry) Get(id string) (PerformanceInfo, bool) {
	p, ok := r.byID[id]
	if !ok {
		return PerformanceInfo{}, false
	}
	return p.info(), true
}

// Snapshot returns every running performance in creation order.
func (r *Registry) Snapshot() []PerformanceInfo {
	out := make([]PerformanceInfo, len(r.perfs))
	for i, p := range r.perfs {
		out[i] = p.info()
	}
	return out
}

// Correlated returns the ids of running performances sharing correlationID.
func (r *Registry) Correlated(correlationID string) []string {
	perfs := r.byCorrelation[correlationID]
	ids := make([]string, len(perfs))
	for i, p := range perfs {
		ids[i] = p.id
	}
	return ids
}

// Sequence returns the Seq of the last emitted command.
func (r *Registry) Sequence() int64 {
	return r.seq.Current()
}

// Reset drops every performance without emitting commands and restarts the
// id and sequence counters where the generator supports it.
func (r *Registry) Reset() {
	r.perfs = nil
	clear(r.byID)
	clear(r.byCorrelation)
	r.seq.Reset()
	if rs, ok := r.ids.(resetter); ok {
		rs.Reset()
	}
}

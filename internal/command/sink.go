package command

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Sink receives emitted commands. Implemented by renderers, recorders and
// the session journal.
type Sink interface {
	Emit(Command)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Command)

// Emit calls f(c).
func (f SinkFunc) Emit(c Command) { f(c) }

// Discard drops every command.
var Discard Sink = SinkFunc(func(Command) {})

// Recorder keeps every command it receives. Safe for concurrent use so that
// tests can inspect it while a Loop is running.
type Recorder struct {
	mu   sync.Mutex
	cmds []Command
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit appends c.
func (r *Recorder) Emit(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, c)
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

// Len returns the number of recorded commands.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cmds)
}

// Count returns how many recorded commands have the given kind.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.cmds {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Filter returns the recorded commands for which keep returns true.
func (r *Recorder) Filter(keep func(Command) bool) []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Command
	for _, c := range r.cmds {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Lines returns the trace form of everything recorded.
func (r *Recorder) Lines() []string {
	return Lines(r.Commands())
}

// Reset forgets everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = nil
}

// Multi fans each command out to every sink in order. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return multiSink(live)
}

type multiSink []Sink

func (m multiSink) Emit(c Command) {
	for _, s := range m {
		s.Emit(c)
	}
}

// LogSink logs every command at Debug. Useful for hosts without a renderer.
type LogSink struct {
	Logger *slog.Logger
}

// Emit logs c.
func (s LogSink) Emit(c Command) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{
		"seq", c.Seq,
		"kind", c.Kind.String(),
		"performance_id", c.PerformanceID,
	}
	switch c.Kind {
	case KindInterrupt:
		attrs = append(attrs, "correlation_id", c.CorrelationID, "interrupted_by", c.InterruptedBy)
	case KindUpdate:
		attrs = append(attrs, "action", c.Action, "entity", c.Entity, "progress", c.Progress)
	default:
		attrs = append(attrs, "action", c.Action, "entity", c.Entity)
	}
	logger.Debug("command emitted", attrs...)
}

// Sequencer stamps a strictly increasing Seq on every command. All commands
// of one Choreographer share a Sequencer, so Seq orders the whole session.
type Sequencer struct {
	seq atomic.Int64
}

// NewSequencer creates a sequencer starting at 0; the first Next returns 1.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// NewSequencerAt creates a sequencer that resumes after start.
func NewSequencerAt(start int64) *Sequencer {
	s := &Sequencer{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last issued sequence number.
func (s *Sequencer) Current() int64 {
	return s.seq.Load()
}

// Reset rewinds to 0.
func (s *Sequencer) Reset() {
	s.seq.Store(0)
}

package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/choreo/internal/command"
	"github.com/roach88/choreo/internal/engine"
	"github.com/roach88/choreo/internal/ir"
)

// Session is the header of one journaled run.
type Session struct {
	ID              string `json:"id"`
	DefinitionsHash string `json:"definitions_hash"`
	EngineVersion   string `json:"engine_version"`
	FormatVersion   string `json:"format_version"`
	Label           string `json:"label,omitempty"`
}

// InputKind distinguishes journaled inputs.
type InputKind string

const (
	InputSignal InputKind = "signal"
	InputTick   InputKind = "tick"
)

// Input is one journaled call into the runtime.
type Input struct {
	Seq           int64     `json:"seq"`
	Kind          InputKind `json:"kind"`
	Signal        ir.Signal `json:"signal,omitzero"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	DeltaMs       float64   `json:"delta_ms,omitempty"`
}

// Journal records a session: inputs through RecordSignal/RecordTick and
// emitted commands through Emit (it is a command.Sink).
//
// Emit has no error return, so write failures are logged, the first one is
// kept, and every later write is skipped. Check Err after the run.
type Journal struct {
	store   *Store
	ctx     context.Context
	session Session
	logger  *slog.Logger

	mu       sync.Mutex
	inputSeq int64
	commands int64
	err      error
}

// JournalOption configures StartSession.
type JournalOption func(*journalConfig)

type journalConfig struct {
	id     string
	label  string
	logger *slog.Logger
}

// WithSessionID sets the session id. Default: a new UUIDv7.
func WithSessionID(id string) JournalOption {
	return func(c *journalConfig) {
		c.id = id
	}
}

// WithLabel attaches a free-form label (scenario name, host name).
func WithLabel(label string) JournalOption {
	return func(c *journalConfig) {
		c.label = label
	}
}

// WithJournalLogger sets the logger used for write failures.
func WithJournalLogger(logger *slog.Logger) JournalOption {
	return func(c *journalConfig) {
		c.logger = logger
	}
}

// StartSession writes a session header for defs and returns a journal for it.
// ctx bounds every write the journal makes.
func (s *Store) StartSession(ctx context.Context, defs []ir.Choreography, opts ...JournalOption) (*Journal, error) {
	cfg := journalConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.Must(uuid.NewV7()).String()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	hash, err := ir.DefinitionsHash(defs)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	sess := Session{
		ID:              cfg.id,
		DefinitionsHash: hash,
		EngineVersion:   ir.EngineVersion,
		FormatVersion:   ir.FormatVersion,
		Label:           cfg.label,
	}
	if err := s.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	return &Journal{
		store:   s,
		ctx:     ctx,
		session: sess,
		logger:  cfg.logger.With("session", sess.ID),
	}, nil
}

// Session returns the session header.
func (j *Journal) Session() Session {
	return j.session
}

// ID returns the session id.
func (j *Journal) ID() string {
	return j.session.ID
}

// RecordSignal journals a signal input. Call it before HandleSignal so the
// commands it produces are tagged with this input.
func (j *Journal) RecordSignal(sig ir.Signal, correlationID string) {
	j.record(Input{Kind: InputSignal, Signal: sig, CorrelationID: correlationID})
}

// RecordTick journals a tick input. Call it before Tick.
func (j *Journal) RecordTick(deltaMs float64) {
	j.record(Input{Kind: InputTick, DeltaMs: deltaMs})
}

func (j *Journal) record(in Input) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.err != nil {
		return
	}
	j.inputSeq++
	in.Seq = j.inputSeq
	if err := j.store.WriteInput(j.ctx, j.session.ID, in); err != nil {
		j.fail(err)
	}
}

// Emit journals one command under the most recent input.
func (j *Journal) Emit(cmd command.Command) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.err != nil {
		return
	}
	if err := j.store.WriteCommand(j.ctx, j.session.ID, j.inputSeq, cmd); err != nil {
		j.fail(err)
		return
	}
	j.commands++
}

// fail must be called with mu held.
func (j *Journal) fail(err error) {
	j.err = err
	j.logger.Error("journal write failed", "error", err)
}

// Err returns the first write failure, if any.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Counts returns how many inputs and commands have been journaled.
func (j *Journal) Counts() (inputs, commands int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inputSeq, j.commands
}

// Recorded drives a choreographer and journals every input before applying
// it. Every command the choreographer emits is journaled too.
type Recorded struct {
	c       *engine.Choreographer
	journal *Journal
}

// StartRecorded registers defs on a new choreographer emitting to sink and
// to a journal, and only then writes the session header, so a rejected
// definition set leaves nothing in the store. Registration failures are
// returned unwrapped; check them with engine.IsRegistrationError.
func (s *Store) StartRecorded(ctx context.Context, defs []ir.Choreography, sink command.Sink, engineOpts []engine.Option, opts ...JournalOption) (*Recorded, error) {
	var journal *Journal
	tee := command.SinkFunc(func(cmd command.Command) { journal.Emit(cmd) })
	c := engine.New(command.Multi(sink, tee), engineOpts...)
	if err := c.RegisterAll(defs); err != nil {
		return nil, err
	}

	journal, err := s.StartSession(ctx, defs, opts...)
	if err != nil {
		return nil, err
	}
	return &Recorded{c: c, journal: journal}, nil
}

// HandleSignal journals then applies a signal.
func (r *Recorded) HandleSignal(sig ir.Signal, correlationID string) []string {
	r.journal.RecordSignal(sig, correlationID)
	return r.c.HandleSignal(sig, correlationID)
}

// Tick journals then applies a tick. Recorded satisfies engine.Ticker.
func (r *Recorded) Tick(deltaMs float64) {
	r.journal.RecordTick(deltaMs)
	r.c.Tick(deltaMs)
}

// Choreographer returns the wrapped choreographer for read-only queries.
func (r *Recorded) Choreographer() *engine.Choreographer {
	return r.c
}

// Journal returns the journal.
func (r *Recorded) Journal() *Journal {
	return r.journal
}

package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/choreo/internal/command"
	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/engine"
	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/store"
)

// driver is what a scenario step talks to: a bare choreographer or one
// wrapped by a journal.
type driver interface {
	engine.Ticker
	HandleSignal(sig ir.Signal, correlationID string) []string
}

// Harness is the scenario execution engine.
// It runs scenarios with a manual clock and counter performance ids.
type Harness struct {
	choreographer *engine.Choreographer
	driver        driver
	clock         *engine.ManualClock
	recorder      *command.Recorder
	journal       *store.Journal
	logger        *slog.Logger
}

// Option configures Run.
type Option func(*config)

type config struct {
	logger *slog.Logger
	store  *store.Store
	ctx    context.Context
}

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithJournal records the run as a session in st. The session is labeled
// with the scenario name and its id is returned in Result.SessionID.
func WithJournal(ctx context.Context, st *store.Store) Option {
	return func(c *config) {
		c.ctx = ctx
		c.store = st
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load and register the choreography definitions
// 2. Apply each step (signal or clock advance) in order
// 3. Evaluate assertions against the trace and registry
//
// An error is returned only when the scenario could not run; failed
// assertions are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	defs, err := compiler.LoadFiles(scenario.Choreographies...)
	if err != nil {
		return nil, fmt.Errorf("failed to load choreographies: %w", err)
	}

	h, err := newHarness(cfg, scenario, defs)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	if err := h.executeSteps(scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	result.Commands = h.recorder.Commands()
	result.Active = h.choreographer.ActivePerformanceCount()

	if h.journal != nil {
		if err := h.journal.Err(); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		result.SessionID = h.journal.ID()
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"commands", len(result.Commands),
		"active", result.Active,
		"pass", result.Pass,
	)
	return result, nil
}

func newHarness(cfg config, scenario *Scenario, defs []ir.Choreography) (*Harness, error) {
	h := &Harness{
		recorder: command.NewRecorder(),
		logger:   cfg.logger,
	}
	engineOpts := []engine.Option{engine.WithLogger(cfg.logger)}

	if cfg.store != nil {
		recorded, err := cfg.store.StartRecorded(cfg.ctx, defs, h.recorder, engineOpts,
			store.WithLabel(scenario.Name),
			store.WithJournalLogger(cfg.logger),
		)
		if engine.IsRegistrationError(err) {
			return nil, fmt.Errorf("failed to register choreographies: %w", err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to start session: %w", err)
		}
		h.journal = recorded.Journal()
		h.driver = recorded
		h.choreographer = recorded.Choreographer()
	} else {
		c := engine.New(h.recorder, engineOpts...)
		if err := c.RegisterAll(defs); err != nil {
			return nil, fmt.Errorf("failed to register choreographies: %w", err)
		}
		h.driver = c
		h.choreographer = c
	}

	h.clock = engine.NewManualClock(h.driver, scenario.FrameMs)
	return h, nil
}

// executeSteps applies each step in order.
func (h *Harness) executeSteps(steps []Step, result *Result) error {
	for i, step := range steps {
		if step.Advance != nil {
			h.clock.Advance(*step.Advance)
			h.logger.Debug("clock advanced",
				"step", i,
				"advance_ms", *step.Advance,
				"elapsed_ms", h.clock.Elapsed(),
			)
			continue
		}

		payload, err := ir.ObjectFromMap(step.Payload)
		if err != nil {
			return fmt.Errorf("step %d: failed to convert payload: %w", i, err)
		}
		started := h.driver.HandleSignal(ir.Signal{Type: step.Signal, Payload: payload}, step.Correlation)
		result.Started = append(result.Started, started)

		h.logger.Debug("signal handled",
			"step", i,
			"signal", step.Signal,
			"correlation_id", step.Correlation,
			"started", started,
		)
	}
	return nil
}

package store

import (
	"context"
	"fmt"

	"github.com/roach88/choreo/internal/command"
	"github.com/roach88/choreo/internal/engine"
	"github.com/roach88/choreo/internal/ir"
)

// ReplayResult compares a journaled command trace with the trace produced
// by re-running the journaled inputs.
type ReplayResult struct {
	SessionID string
	// HashMatch is false when defs differ from the definitions the session
	// was recorded with. The replay still runs.
	HashMatch bool
	Inputs    int
	Identical bool
	Expected  []command.Command
	Actual    []command.Command
	// DivergedAt is the index of the first differing command, or -1.
	DivergedAt int
}

// Diff describes the first divergence, or returns "" when identical.
func (r *ReplayResult) Diff() string {
	if r.DivergedAt < 0 {
		return ""
	}
	i := r.DivergedAt
	expected, actual := "<end of trace>", "<end of trace>"
	if i < len(r.Expected) {
		expected = r.Expected[i].String()
	}
	if i < len(r.Actual) {
		actual = r.Actual[i].String()
	}
	return fmt.Sprintf("command %d:\n  expected: %s\n  actual:   %s", i+1, expected, actual)
}

// Replay feeds a session's inputs, in seq order, to a fresh choreographer
// registered with defs and compares the emitted commands with the journal.
//
// Performance ids must be reproducible for the traces to match, so replay
// uses the default counter ids unless opts override them. Sessions recorded
// with UUIDv7 ids will report a divergence at their first command.
func Replay(ctx context.Context, s *Store, sessionID string, defs []ir.Choreography, opts ...engine.Option) (*ReplayResult, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", sessionID, err)
	}
	inputs, err := s.ReadInputs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", sessionID, err)
	}
	expected, err := s.ReadCommands(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", sessionID, err)
	}

	hash, err := ir.DefinitionsHash(defs)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", sessionID, err)
	}

	rec := command.NewRecorder()
	c := engine.New(rec, opts...)
	if err := c.RegisterAll(defs); err != nil {
		return nil, fmt.Errorf("replay %s: %w", sessionID, err)
	}

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch in.Kind {
		case InputSignal:
			c.HandleSignal(in.Signal, in.CorrelationID)
		case InputTick:
			c.Tick(in.DeltaMs)
		default:
			return nil, fmt.Errorf("replay %s: input %d: unknown kind %q", sessionID, in.Seq, in.Kind)
		}
	}

	actual := rec.Commands()
	result := &ReplayResult{
		SessionID:  sessionID,
		HashMatch:  hash == sess.DefinitionsHash,
		Inputs:     len(inputs),
		Expected:   expected,
		Actual:     actual,
		DivergedAt: firstDivergence(expected, actual),
	}
	result.Identical = result.DivergedAt < 0
	return result, nil
}

// firstDivergence compares seq and trace line pairwise.
func firstDivergence(expected, actual []command.Command) int {
	n := min(len(expected), len(actual))
	for i := 0; i < n; i++ {
		if expected[i].Seq != actual[i].Seq || expected[i].String() != actual[i].String() {
			return i
		}
	}
	if len(expected) != len(actual) {
		return n
	}
	return -1
}

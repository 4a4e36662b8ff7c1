package store

import (
	"context"
	"fmt"

	"github.com/roach88/choreo/internal/command"
)

// CreateSession inserts a session header.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - reopening a session
// with the same id is silently ignored.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, definitions_hash, engine_version, format_version, label)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.DefinitionsHash,
		sess.EngineVersion,
		sess.FormatVersion,
		sess.Label,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// WriteInput appends one input to a session. The (session_id, seq) pair is
// unique; writing the same seq twice is an error.
//
// Note: The session referenced by sessionID must exist (foreign key constraint).
func (s *Store) WriteInput(ctx context.Context, sessionID string, in Input) error {
	payloadJSON, err := marshalPayload(in.Signal.Payload)
	if err != nil {
		return fmt.Errorf("write input: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inputs
		(session_id, seq, kind, signal_type, payload, correlation_id, delta_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		sessionID,
		in.Seq,
		string(in.Kind),
		in.Signal.Type,
		payloadJSON,
		in.CorrelationID,
		in.DeltaMs,
	)
	if err != nil {
		return fmt.Errorf("write input: %w", err)
	}
	return nil
}

// WriteCommand appends one emitted command, tagged with the seq of the input
// that produced it. The command's own Seq must be unique within the session.
func (s *Store) WriteCommand(ctx context.Context, sessionID string, inputSeq int64, cmd command.Command) error {
	paramsJSON, err := marshalParams(cmd.Params)
	if err != nil {
		return fmt.Errorf("write command: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO commands
		(session_id, seq, input_seq, kind, performance_id, action, entity, params,
		 easing, duration_ms, progress, correlation_id, interrupted_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sessionID,
		cmd.Seq,
		inputSeq,
		cmd.Kind.String(),
		cmd.PerformanceID,
		cmd.Action,
		cmd.Entity,
		paramsJSON,
		cmd.Easing,
		cmd.DurationMs,
		cmd.Progress,
		cmd.CorrelationID,
		cmd.InterruptedBy,
	)
	if err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/choreo/internal/command"
)

// ReadSession retrieves a session header by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, definitions_hash, engine_version, format_version, label
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.DefinitionsHash, &sess.EngineVersion, &sess.FormatVersion, &sess.Label)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// ListSessions returns every session header ordered by id. UUIDv7 session
// ids sort in creation order.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, definitions_hash, engine_version, format_version, label
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.DefinitionsHash, &sess.EngineVersion, &sess.FormatVersion, &sess.Label); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadInputs returns a session's inputs in seq order.
// Returns an empty slice (not nil) if the session has no inputs.
func (s *Store) ReadInputs(ctx context.Context, sessionID string) ([]Input, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, signal_type, payload, correlation_id, delta_ms
		FROM inputs
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query inputs: %w", err)
	}
	defer rows.Close()

	inputs := []Input{}
	for rows.Next() {
		in, err := scanInput(rows)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inputs: %w", err)
	}
	return inputs, nil
}

// ReadCommands returns a session's commands in seq order, optionally
// restricted to the given kinds.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadCommands(ctx context.Context, sessionID string, kinds ...command.Kind) ([]command.Command, error) {
	query := `
		SELECT seq, kind, performance_id, action, entity, params,
		       easing, duration_ms, progress, correlation_id, interrupted_by
		FROM commands
		WHERE session_id = ?`
	args := []any{sessionID}
	if len(kinds) > 0 {
		marks := make([]string, len(kinds))
		for i, k := range kinds {
			marks[i] = "?"
			args = append(args, k.String())
		}
		query += " AND kind IN (" + strings.Join(marks, ", ") + ")"
	}
	query += " ORDER BY seq ASC"

	return s.queryCommands(ctx, query, args...)
}

// ReadCommandsForInput returns the commands one input produced, in seq order.
func (s *Store) ReadCommandsForInput(ctx context.Context, sessionID string, inputSeq int64) ([]command.Command, error) {
	return s.queryCommands(ctx, `
		SELECT seq, kind, performance_id, action, entity, params,
		       easing, duration_ms, progress, correlation_id, interrupted_by
		FROM commands
		WHERE session_id = ? AND input_seq = ?
		ORDER BY seq ASC
	`, sessionID, inputSeq)
}

// queryCommands runs a command SELECT and scans every row.
func (s *Store) queryCommands(ctx context.Context, query string, args ...any) ([]command.Command, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	cmds := []command.Command{}
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}
	return cmds, nil
}

// GetLastSeq returns the highest input and command seq recorded for a
// session, or zeros for an empty session.
func (s *Store) GetLastSeq(ctx context.Context, sessionID string) (inputSeq, commandSeq int64, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM inputs WHERE session_id = ?
	`, sessionID).Scan(&inputSeq)
	if err != nil {
		return 0, 0, fmt.Errorf("get last input seq: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM commands WHERE session_id = ?
	`, sessionID).Scan(&commandSeq)
	if err != nil {
		return 0, 0, fmt.Errorf("get last command seq: %w", err)
	}
	return inputSeq, commandSeq, nil
}

func scanInput(rows *sql.Rows) (Input, error) {
	var in Input
	var kind, payloadJSON string
	if err := rows.Scan(&in.Seq, &kind, &in.Signal.Type, &payloadJSON, &in.CorrelationID, &in.DeltaMs); err != nil {
		return Input{}, fmt.Errorf("scan input: %w", err)
	}
	in.Kind = InputKind(kind)

	if in.Kind == InputSignal {
		payload, err := unmarshalPayload(payloadJSON)
		if err != nil {
			return Input{}, fmt.Errorf("input %d: %w", in.Seq, err)
		}
		in.Signal.Payload = payload
	}
	return in, nil
}

func scanCommand(rows *sql.Rows) (command.Command, error) {
	var cmd command.Command
	var kind, paramsJSON string
	if err := rows.Scan(
		&cmd.Seq, &kind, &cmd.PerformanceID, &cmd.Action, &cmd.Entity, &paramsJSON,
		&cmd.Easing, &cmd.DurationMs, &cmd.Progress, &cmd.CorrelationID, &cmd.InterruptedBy,
	); err != nil {
		return command.Command{}, fmt.Errorf("scan command: %w", err)
	}

	k, err := command.ParseKind(kind)
	if err != nil {
		return command.Command{}, fmt.Errorf("command %d: %w", cmd.Seq, err)
	}
	cmd.Kind = k

	params, err := unmarshalParams(paramsJSON)
	if err != nil {
		return command.Command{}, fmt.Errorf("command %d: %w", cmd.Seq, err)
	}
	cmd.Params = params
	return cmd, nil
}


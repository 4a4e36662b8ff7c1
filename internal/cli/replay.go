package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/choreo/internal/engine"
	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	SessionID string `json:"session_id"`
	Label     string `json:"label,omitempty"`
	Inputs    int    `json:"inputs"`
	Commands  int    `json:"commands"`
	HashMatch bool   `json:"hash_match"`
	Identical bool   `json:"identical"`
	// DivergedAt is the 1-based index of the first differing command.
	DivergedAt int    `json:"diverged_at,omitempty"`
	Diff       string `json:"diff,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions     []ReplaySessionResult `json:"sessions"`
	Total        int                   `json:"total"`
	AllIdentical bool                  `json:"all_identical"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <definitions>",
		Short: "Replay journaled sessions and verify determinism",
		Long: `Replay journaled sessions against a set of definitions.

Each session's inputs are fed, in order, to a fresh runtime registered
with the given definitions. The emitted commands must match the journal
exactly. A definitions hash mismatch is reported but the replay still
runs, so a changed definition shows up as the first diverging command.

Sessions recorded with uuid performance ids cannot replay identically.

Exit codes:
  0 - All sessions replayed identically
  1 - At least one session diverged
  2 - Command error (database not found, etc.)

Examples:
  choreo replay ./choreographies --db ./choreo.db
  choreo replay ./choreographies --db ./choreo.db --session 0192f0c4-...
  choreo replay ./choreographies --db ./choreo.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay this session only")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	defs, err := loadForRun(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load definitions", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer closeStore(st, logger)

	var sessions []store.Session
	if opts.Session != "" {
		sess, err := st.ReadSession(ctx, opts.Session)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Session))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read session", err)
		}
		sessions = []store.Session{sess}
	} else {
		sessions, err = st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:     make([]ReplaySessionResult, 0, len(sessions)),
		Total:        len(sessions),
		AllIdentical: true,
	}
	for _, sess := range sessions {
		formatter.VerboseLog("Replaying session %s", sess.ID)
		r, err := replaySession(ctx, st, sess, defs, engine.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", sess.ID), err)
		}
		result.Sessions = append(result.Sessions, r)
		if !r.Identical {
			result.AllIdentical = false
		}
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: status(result.AllIdentical), Data: result}
		if !result.AllIdentical {
			resp.Error = &CLIError{Code: "E_NONDETERMINISTIC", Message: "replay diverged from journal"}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		outputReplayText(formatter, result)
	}

	if !result.AllIdentical {
		return NewExitError(ExitFailure, "replay diverged from journal")
	}
	return nil
}

func replaySession(ctx context.Context, st *store.Store, sess store.Session, defs []ir.Choreography, opts ...engine.Option) (ReplaySessionResult, error) {
	r, err := store.Replay(ctx, st, sess.ID, defs, opts...)
	if err != nil {
		return ReplaySessionResult{}, err
	}
	out := ReplaySessionResult{
		SessionID: sess.ID,
		Label:     sess.Label,
		Inputs:    r.Inputs,
		Commands:  len(r.Expected),
		HashMatch: r.HashMatch,
		Identical: r.Identical,
		Diff:      r.Diff(),
	}
	if !r.Identical {
		out.DivergedAt = r.DivergedAt + 1
	}
	return out, nil
}

func outputReplayText(formatter *OutputFormatter, result ReplayResult) {
	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return
	}

	for _, s := range result.Sessions {
		name := s.SessionID
		if s.Label != "" {
			name += " (" + s.Label + ")"
		}
		if s.Identical {
			formatter.OK("%s: %d inputs, %d commands replayed identically", name, s.Inputs, s.Commands)
		} else {
			formatter.Fail("%s: diverged", name)
			fmt.Fprintln(w, s.Diff)
		}
		if !s.HashMatch {
			fmt.Fprintln(w, "  note: definitions differ from the ones the session was recorded with")
		}
	}
	fmt.Fprintln(w)

	if result.AllIdentical {
		formatter.OK("All %d session(s) deterministic", result.Total)
		return
	}
	formatter.Fail("Replay diverged from journal")
}

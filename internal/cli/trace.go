package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/choreo/internal/command"
	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Kinds    []string // optional - filter to these command kinds
}

// TraceEntry is one journaled input and the commands it produced.
type TraceEntry struct {
	Input    store.Input       `json:"input"`
	Commands []command.Command `json:"commands"`
}

// TraceResult holds the complete trace output for one session.
type TraceResult struct {
	Session  store.Session `json:"session"`
	Timeline []TraceEntry  `json:"timeline"`
	Stats    TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the session.
type TraceStats struct {
	Signals   int            `json:"signals"`
	Ticks     int            `json:"ticks"`
	ElapsedMs float64        `json:"elapsed_ms"`
	Commands  int            `json:"commands"`
	ByKind    map[string]int `json:"by_kind"`
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	store.Session
	Inputs   int64 `json:"inputs"`
	Commands int64 `json:"commands"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a journaled session",
		Long: `Show what a journaled session did.

Without --session, lists every session in the database. With --session,
prints each journaled input (signal or tick) followed by the commands it
produced, then per-kind counts.

Examples:
  choreo trace --db ./choreo.db
  choreo trace --db ./choreo.db --session 0192f0c4-...
  choreo trace --db ./choreo.db --session 0192f0c4-... --kind interrupt --kind start
  choreo trace --db ./choreo.db --session 0192f0c4-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to trace")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kind", nil, "only show commands of this kind (repeatable)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	kinds, err := parseKinds(opts.Kinds)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --kind", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" {
		sessions, err := summarizeSessions(ctx, st)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		return outputSessions(formatter, sessions)
	}

	result, err := buildTrace(ctx, st, opts.Session, kinds)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Session))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result)
}

func parseKinds(names []string) ([]command.Kind, error) {
	kinds := make([]command.Kind, 0, len(names))
	for _, n := range names {
		k, err := command.ParseKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func summarizeSessions(ctx context.Context, st *store.Store) ([]SessionSummary, error) {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		inputs, commands, err := st.GetLastSeq(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, SessionSummary{Session: s, Inputs: inputs, Commands: commands})
	}
	return out, nil
}

// buildTrace groups a session's commands under the inputs that produced
// them. Inputs with no remaining commands after the kind filter are kept,
// so ticks still show elapsed time.
func buildTrace(ctx context.Context, st *store.Store, sessionID string, kinds []command.Kind) (*TraceResult, error) {
	sess, err := st.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	inputs, err := st.ReadInputs(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result := &TraceResult{
		Session:  sess,
		Timeline: make([]TraceEntry, 0, len(inputs)),
		Stats:    TraceStats{ByKind: map[string]int{}},
	}
	for _, in := range inputs {
		cmds, err := st.ReadCommandsForInput(ctx, sessionID, in.Seq)
		if err != nil {
			return nil, err
		}
		if len(kinds) > 0 {
			cmds = slices.DeleteFunc(cmds, func(c command.Command) bool {
				return !slices.Contains(kinds, c.Kind)
			})
		}

		switch in.Kind {
		case store.InputSignal:
			result.Stats.Signals++
		case store.InputTick:
			result.Stats.Ticks++
			result.Stats.ElapsedMs += max(in.DeltaMs, 0)
		}
		for _, c := range cmds {
			result.Stats.Commands++
			result.Stats.ByKind[c.Kind.String()]++
		}
		result.Timeline = append(result.Timeline, TraceEntry{Input: in, Commands: cmds})
	}
	return result, nil
}

func outputSessions(formatter *OutputFormatter, sessions []SessionSummary) error {
	if formatter.Format == "json" {
		if sessions == nil {
			sessions = []SessionSummary{}
		}
		return formatter.Success(sessions)
	}

	w := formatter.Writer
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}
	formatter.Heading("=== Sessions ===")
	for _, s := range sessions {
		label := s.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(w, "  %s  %s  inputs=%d commands=%d\n", s.ID, label, s.Inputs, s.Commands)
	}
	return nil
}

func outputTraceText(formatter *OutputFormatter, result *TraceResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session.ID)
	if result.Session.Label != "" {
		fmt.Fprintf(w, "Label: %s\n", result.Session.Label)
	}
	if formatter.Verbose {
		fmt.Fprintf(w, "Definitions: %s\n", result.Session.DefinitionsHash)
		fmt.Fprintf(w, "Engine: %s (format %s)\n", result.Session.EngineVersion, result.Session.FormatVersion)
	}
	fmt.Fprintln(w)

	formatter.Heading("=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no inputs)")
	}
	for _, entry := range result.Timeline {
		// Quiet ticks are noise unless asked for.
		if entry.Input.Kind == store.InputTick && len(entry.Commands) == 0 && !formatter.Verbose {
			continue
		}
		fmt.Fprintf(w, "#%d %s\n", entry.Input.Seq, describeInput(entry.Input))
		for _, c := range entry.Commands {
			formatter.Command(c)
		}
	}
	fmt.Fprintln(w)

	formatter.Heading("=== Stats ===")
	fmt.Fprintf(w, "  Signals:  %d\n", result.Stats.Signals)
	fmt.Fprintf(w, "  Ticks:    %d (%sms)\n", result.Stats.Ticks, command.FormatNumber(result.Stats.ElapsedMs))
	fmt.Fprintf(w, "  Commands: %d\n", result.Stats.Commands)
	for _, k := range command.Kinds() {
		if n := result.Stats.ByKind[k.String()]; n > 0 {
			fmt.Fprintf(w, "    %-9s %d\n", k.String()+":", n)
		}
	}
	return nil
}

func describeInput(in store.Input) string {
	if in.Kind == store.InputTick {
		return "tick " + command.FormatNumber(in.DeltaMs) + "ms"
	}
	s := "signal " + in.Signal.Type
	if in.CorrelationID != "" {
		s += " correlation=" + in.CorrelationID
	}
	if len(in.Signal.Payload) > 0 {
		if data, err := ir.MarshalCanonical(in.Signal.Payload); err == nil {
			s += " payload=" + string(data)
		}
	}
	return s
}

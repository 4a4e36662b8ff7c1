package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/choreo/internal/command"
	"github.com/roach88/choreo/internal/engine"
	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/store"
)

// FireOptions holds flags for the fire command.
type FireOptions struct {
	*RootOptions
	Signal      string
	Payload     string
	Correlation string
	Advance     float64
	FrameMs     float64
	Database    string
	IDs         string // "counter" | "uuid"
}

// FireResult is what one fire produced.
type FireResult struct {
	Signal    string            `json:"signal"`
	Started   []string          `json:"started"`
	Commands  []command.Command `json:"commands"`
	Active    int               `json:"active"`
	ElapsedMs float64           `json:"elapsed_ms"`
	SessionID string            `json:"session_id,omitempty"`
}

// NewFireCommand creates the fire command.
func NewFireCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FireOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fire <definitions>",
		Short: "Fire one signal and print the commands it produces",
		Long: `Fire one signal at the runtime and advance the clock.

The definitions are registered, the signal is handled, then --advance
milliseconds are played in ticks of --frame-ms. Every emitted command is
printed. With --db the run is journaled as a session that trace and
replay can read.

Examples:
  choreo fire ./choreographies --signal task_dispatch \
      --payload '{"from":"orchestrator","to":"agent-solver"}' --advance 2300
  choreo fire ./choreographies --signal error --correlation task-42 --db ./choreo.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFire(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Signal, "signal", "", "signal type (required)")
	_ = cmd.MarkFlagRequired("signal")
	cmd.Flags().StringVar(&opts.Payload, "payload", "{}", "signal payload as a JSON object")
	cmd.Flags().StringVar(&opts.Correlation, "correlation", "", "correlation id")
	cmd.Flags().Float64Var(&opts.Advance, "advance", 0, "milliseconds to play after the signal")
	cmd.Flags().Float64Var(&opts.FrameMs, "frame-ms", 16, "tick size in milliseconds (<= 0 plays --advance as one tick)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the run into this SQLite database")
	cmd.Flags().StringVar(&opts.IDs, "ids", "counter", "performance ids (counter|uuid)")

	return cmd
}

func runFire(opts *FireOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	payload, err := parsePayload(opts.Payload)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --payload", err)
	}
	engineOpts, err := idOptions(opts.IDs)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --ids", err)
	}
	engineOpts = append(engineOpts, engine.WithLogger(logger))

	defs, err := loadForRun(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load definitions", err)
	}
	formatter.VerboseLog("Registered %d choreograph%s", len(defs), plural(len(defs), "y", "ies"))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	recorder := command.NewRecorder()
	sink := command.Multi(recorder, command.LogSink{Logger: logger})

	var (
		driver  firer
		queries *engine.Choreographer
		journal *store.Journal
	)
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer closeStore(st, logger)

		recorded, err := st.StartRecorded(ctx, defs, sink, engineOpts,
			store.WithLabel("fire "+opts.Signal),
			store.WithJournalLogger(logger),
		)
		if engine.IsRegistrationError(err) {
			return WrapExitError(ExitCommandError, "failed to register choreographies", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start session", err)
		}
		journal = recorded.Journal()
		driver, queries = recorded, recorded.Choreographer()
	} else {
		c := engine.New(sink, engineOpts...)
		if err := c.RegisterAll(defs); err != nil {
			return WrapExitError(ExitCommandError, "failed to register choreographies", err)
		}
		driver, queries = c, c
	}

	sig := ir.Signal{Type: opts.Signal, Payload: payload}
	started := driver.HandleSignal(sig, opts.Correlation)
	clock := engine.NewManualClock(driver, opts.FrameMs)
	if opts.Advance > 0 {
		clock.Advance(opts.Advance)
	}

	result := FireResult{
		Signal:    opts.Signal,
		Started:   started,
		Commands:  recorder.Commands(),
		Active:    queries.ActivePerformanceCount(),
		ElapsedMs: clock.Elapsed(),
	}
	if result.Started == nil {
		result.Started = []string{}
	}
	if journal != nil {
		if err := journal.Err(); err != nil {
			return WrapExitError(ExitCommandError, "journal write failed", err)
		}
		result.SessionID = journal.ID()
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputFireText(formatter, result)
}

// firer is a bare choreographer or a journaled one.
type firer interface {
	engine.Ticker
	HandleSignal(sig ir.Signal, correlationID string) []string
}

func outputFireText(formatter *OutputFormatter, result FireResult) error {
	w := formatter.Writer
	if len(result.Started) == 0 {
		fmt.Fprintf(w, "No choreography matched signal %q\n", result.Signal)
	} else {
		fmt.Fprintf(w, "Signal %s started %v\n", result.Signal, result.Started)
	}
	fmt.Fprintln(w)

	formatter.Heading("=== Commands ===")
	if len(result.Commands) == 0 {
		fmt.Fprintln(w, "  (no commands)")
	}
	for _, c := range result.Commands {
		formatter.Command(c)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Elapsed: %sms, active performances: %d\n", command.FormatNumber(result.ElapsedMs), result.Active)
	if result.SessionID != "" {
		fmt.Fprintf(w, "Session: %s\n", result.SessionID)
	}
	return nil
}

// parsePayload decodes a JSON object; "" is an empty payload.
func parsePayload(s string) (ir.Object, error) {
	if s == "" {
		return ir.Object{}, nil
	}
	v, err := ir.UnmarshalValue([]byte(s))
	if err != nil {
		return nil, err
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("payload must be a JSON object, got %T", v)
	}
	return obj, nil
}

func idOptions(ids string) ([]engine.Option, error) {
	switch ids {
	case "", "counter":
		return nil, nil
	case "uuid":
		return []engine.Option{engine.WithIDGenerator(engine.UUIDv7Generator{})}, nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q: must be counter or uuid", ids)
	}
}

// loadForRun loads definitions and fails on the first decode error.
func loadForRun(path string) ([]ir.Choreography, error) {
	loadResult, loadErrors := LoadDefinitions(path, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}
	return loadResult.Choreographies, nil
}

func closeStore(st io.Closer, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/choreo/internal/harness"
	"github.com/roach88/choreo/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario and print its trace",
		Long: `Run one scenario file against its choreographies with the manual clock.

Prints every emitted command and any failed assertion. With --db the run
is journaled as a session labeled with the scenario name.

Exit codes:
  0 - All assertions held
  1 - One or more assertions failed
  2 - Command error (scenario not found, bad definitions, etc.)

Example:
  choreo run ./scenarios/task_dispatch.yaml
  choreo run ./scenarios/task_dispatch.yaml --db ./choreo.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the run into this SQLite database")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	harnessOpts := []harness.Option{harness.WithLogger(logger)}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer closeStore(st, logger)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		harnessOpts = append(harnessOpts, harness.WithJournal(ctx, st))
	}

	logger.Info("running scenario", "scenario", scenario.Name, "path", path)
	result, err := harness.Run(scenario, harnessOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario could not run", err)
	}

	if opts.Format == "json" {
		if err := formatter.encode(CLIResponse{Status: status(result.Pass), Data: result}); err != nil {
			return err
		}
	} else {
		outputRunText(formatter, scenario, result)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertion(s) failed", len(result.Errors)))
	}
	return nil
}

func outputRunText(formatter *OutputFormatter, scenario *harness.Scenario, result *harness.Result) {
	w := formatter.Writer

	fmt.Fprintf(w, "Scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Fprintf(w, "  %s\n", scenario.Description)
	}
	fmt.Fprintln(w)

	formatter.Heading("=== Trace ===")
	if len(result.Commands) == 0 {
		fmt.Fprintln(w, "  (no commands)")
	}
	for _, c := range result.Commands {
		formatter.Command(c)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Active performances: %d\n", result.Active)
	if result.SessionID != "" {
		fmt.Fprintf(w, "Session: %s\n", result.SessionID)
	}

	if result.Pass {
		formatter.OK("%s passed", scenario.Name)
		return
	}
	formatter.Fail("%s failed", scenario.Name)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/choreo/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "" when there is none
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run every scenario in a directory",
		Long: `Run every scenario file in a directory and report pass/fail.

A scenario passes when all its assertions hold and, if
golden/<name>.golden exists next to it, its trace matches that file
byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  choreo test ./scenarios
  choreo test ./scenarios --filter "error_*"
  choreo test ./scenarios --update
  choreo test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(scenariosDir); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(formatter, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	for _, scenarioFile := range scenarioFiles {
		formatter.VerboseLog("Running %s", scenarioFile)
		scenResult := runScenario(scenarioFile, opts.Update, harness.WithLogger(logger))
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		if opts.Format != "json" {
			outputScenarioText(formatter, scenResult)
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// findScenarioFiles finds all YAML scenario files under dir, skipping
// golden directories. filter is matched against the file name without
// extension.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario executes a single scenario and checks its golden file.
func runScenario(scenarioFile string, update bool, opts ...harness.Option) ScenarioResult {
	name := strings.TrimSuffix(filepath.Base(scenarioFile), filepath.Ext(scenarioFile))

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return ScenarioResult{
			Name:   name,
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}
	name = scenario.Name

	result, err := harness.Run(scenario, opts...)
	if err != nil {
		return ScenarioResult{
			Name:   name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	out := ScenarioResult{Name: name, Pass: result.Pass, Errors: result.Errors}
	goldenPath := goldenFilePath(scenarioFile)
	trace := harness.TraceText(result)

	if update {
		if err := writeGoldenFile(goldenPath, trace); err != nil {
			out.Pass = false
			out.Errors = append(out.Errors, fmt.Sprintf("failed to update golden file: %v", err))
			return out
		}
		out.Golden = "updated"
		return out
	}

	golden, err := os.ReadFile(goldenPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Assertions only.
	case err != nil:
		out.Pass = false
		out.Errors = append(out.Errors, fmt.Sprintf("golden comparison failed: %v", err))
	case !bytes.Equal(golden, trace):
		out.Pass = false
		out.Errors = append(out.Errors, "trace does not match golden file (run with --update to regenerate)")
	default:
		out.Golden = "match"
	}
	return out
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGoldenFile(path string, trace []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, trace, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func outputScenarioText(formatter *OutputFormatter, r ScenarioResult) {
	if !r.Pass {
		formatter.Fail("%s", r.Name)
		for _, e := range r.Errors {
			fmt.Fprintf(formatter.Writer, "  %s\n", e)
		}
		return
	}
	switch r.Golden {
	case "updated":
		formatter.OK("%s (golden updated)", r.Name)
	case "match":
		formatter.OK("%s (golden match)", r.Name)
	default:
		formatter.OK("%s", r.Name)
	}
}

func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	response := CLIResponse{
		Status: status(result.Failed == 0),
		Data:   result,
	}
	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	if err := formatter.encode(response); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func outputTestText(formatter *OutputFormatter, result TestResult) error {
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintf(formatter.Writer, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	formatter.OK("All scenarios passed")
	return nil
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the compiled form of a definition set. Written with
// -o it is itself a valid JSON definition document.
type CompilationResult struct {
	Choreographies []ir.Object `json:"choreographies"`
	Hash           string      `json:"hash"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	ChoreographyCount int
	SignalTypes       []string
	TotalSteps        int
	AnimatedSteps     int
	Interrupting      int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <definitions>",
		Short: "Compile definitions to canonical JSON",
		Long: `Compile YAML, JSON or CUE choreography definitions to one canonical
JSON document.

The output carries every choreography in load order plus the definitions
hash recorded by journaled sessions. The written file can be loaded back
by every other command.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadDefinitions(path, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return outputCompileError(formatter, code, message, nil)
	}

	formatter.VerboseLog("Found %d definition file(s) in %s", len(loadResult.Files), path)
	for _, def := range loadResult.Choreographies {
		formatter.VerboseLog("Compiling choreography: %s", def.ID)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	// Only trees that pass validation can be described; Describe walks them
	// recursively.
	if verrs := compiler.ValidateAll(loadResult.Choreographies); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = v
		}
		return outputCompileErrors(formatter, errs)
	}

	result, err := buildCompilation(loadResult.Choreographies)
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}
	stats := calculateStats(loadResult.Choreographies)

	if opts.Output != "" {
		if err := writeCompilation(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, loadResult.Choreographies, result, stats, opts.Output)
}

func buildCompilation(defs []ir.Choreography) (*CompilationResult, error) {
	hash, err := ir.DefinitionsHash(defs)
	if err != nil {
		return nil, fmt.Errorf("hashing definitions: %w", err)
	}
	result := &CompilationResult{
		Choreographies: make([]ir.Object, len(defs)),
		Hash:           hash,
	}
	for i, d := range defs {
		result.Choreographies[i] = d.Describe()
	}
	return result, nil
}

// calculateStats computes summary statistics over validated definitions.
func calculateStats(defs []ir.Choreography) CompilationStats {
	stats := CompilationStats{
		ChoreographyCount: len(defs),
		SignalTypes:       signalTypes(defs),
	}
	for _, d := range defs {
		if d.Interrupts {
			stats.Interrupting++
		}
		arena, err := ir.BuildArena(d.Steps, ir.DefaultLimits())
		if err != nil {
			continue
		}
		stats.TotalSteps += arena.Len()
		for i := 0; i < arena.Len(); i++ {
			if arena.Node(i).Animated {
				stats.AnimatedSteps++
			}
		}
	}
	return stats
}

func outputCompileSuccess(formatter *OutputFormatter, defs []ir.Choreography, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	formatter.OK("Compiled %d choreograph%s (%d steps, %d animated)",
		stats.ChoreographyCount, plural(stats.ChoreographyCount, "y", "ies"),
		stats.TotalSteps, stats.AnimatedSteps)
	fmt.Fprintln(formatter.Writer)

	formatter.Heading("Choreographies:")
	for _, d := range defs {
		suffix := ""
		if d.Interrupts {
			suffix = " (interrupts)"
		}
		fmt.Fprintf(formatter.Writer, "  %s: on %s, %d root step(s)%s\n", d.ID, d.On, len(d.Steps), suffix)
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintf(formatter.Writer, "Hash: %s\n", result.Hash)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote compiled definitions to %s\n", outputFile)
	}
	return nil
}

func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	formatter.Fail("Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	var validationErr compiler.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Code, validationErr.Field + ": " + validationErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeCompilation writes the result as indented JSON. Params keep their
// canonical key order.
func writeCompilation(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling definitions: %w", err)
	}

	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

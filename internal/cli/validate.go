package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid          bool                       `json:"valid"`
	Choreographies []string                   `json:"choreographies,omitempty"`
	Errors         []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definitions>",
		Short: "Validate choreography definitions",
		Long: `Validate choreography definitions without running them.

Reports decode errors, missing ids and signal types, empty actions,
invalid durations, unknown easings, cyclic or oversized step trees,
empty signal references and duplicate ids. The runtime tolerates some
of these (an unknown easing plays as linear); validate does not.

Exit codes:
  0 - All definitions valid
  1 - Validation errors found
  2 - Command error (path not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadDefinitions(path, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return outputValidateError(formatter, code, message, nil)
	}

	formatter.VerboseLog("Found %d definition file(s) in %s", len(loadResult.Files), path)
	for _, def := range loadResult.Choreographies {
		formatter.VerboseLog("Validating choreography: %s", def.ID)
	}

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		validationErrors = append(validationErrors, loadErrorToValidation(err))
	}
	validationErrors = append(validationErrors, compiler.ValidateAll(loadResult.Choreographies)...)

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}
	return outputValidateSuccess(formatter, loadResult.Choreographies)
}

// loadErrorToValidation reports a decode error in validation form.
func loadErrorToValidation(err error) compiler.ValidationError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		ve := compiler.ValidationError{
			Field:   "load",
			Message: loadErr.Message,
			Code:    loadErr.Code,
		}
		if loadErr.Pos.IsValid() {
			ve.Field = loadErr.Pos.Filename()
			ve.Line = loadErr.Pos.Line()
		}
		return ve
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
}

func outputValidateSuccess(formatter *OutputFormatter, defs []ir.Choreography) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Choreographies: choreographyIDs(defs)})
	}

	formatter.OK("All definitions valid (%d choreographies)", len(defs))
	return nil
}

func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	formatter.Fail("Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateDefinitions loads and validates the definitions at path.
// This is a helper function for external callers.
func ValidateDefinitions(path string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadDefinitions(path, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	var errs []compiler.ValidationError
	for _, err := range loadErrors {
		errs = append(errs, loadErrorToValidation(err))
	}
	return append(errs, compiler.ValidateAll(loadResult.Choreographies)...), nil
}

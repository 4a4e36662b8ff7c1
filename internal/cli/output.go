package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/choreo/internal/command"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation failure, failed scenarios, diverged replay
	ExitCommandError = 2 // Command error (invalid paths, database not found, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool

	styles *styles
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E120", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// styles are rendered through a renderer bound to the output writer, so
// color is dropped when the writer is not a terminal.
type styles struct {
	ok      lipgloss.Style
	fail    lipgloss.Style
	heading lipgloss.Style
	dim     lipgloss.Style
	kinds   map[command.Kind]lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	r := lipgloss.NewRenderer(w)
	return &styles{
		ok:      r.NewStyle().Foreground(lipgloss.Color("#5FD787")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		heading: r.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("#888888")),
		kinds: map[command.Kind]lipgloss.Style{
			command.KindStart:     r.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
			command.KindUpdate:    r.NewStyle().Foreground(lipgloss.Color("#888888")),
			command.KindComplete:  r.NewStyle().Foreground(lipgloss.Color("#5FD787")),
			command.KindExecute:   r.NewStyle().Foreground(lipgloss.Color("#D7AF5F")),
			command.KindInterrupt: r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		},
	}
}

func (f *OutputFormatter) style() *styles {
	if f.styles == nil {
		f.styles = newStyles(f.Writer)
	}
	return f.styles
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "%s [%s]: %s\n", f.style().fail.Render("Error"), code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// encode writes an indented JSON response.
func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// OK prints a success line in text mode.
func (f *OutputFormatter) OK(format string, args ...any) {
	fmt.Fprintln(f.Writer, f.style().ok.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Fail prints a failure line in text mode.
func (f *OutputFormatter) Fail(format string, args ...any) {
	fmt.Fprintln(f.Writer, f.style().fail.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Heading prints a section heading in text mode.
func (f *OutputFormatter) Heading(title string) {
	fmt.Fprintln(f.Writer, f.style().heading.Render(title))
}

// Command prints one trace line, prefixed with its seq and colored by kind.
func (f *OutputFormatter) Command(c command.Command) {
	st := f.style()
	seq := st.dim.Render(fmt.Sprintf("[%d]", c.Seq))
	line := c.String()
	if ks, ok := st.kinds[c.Kind]; ok {
		line = ks.Render(line)
	}
	fmt.Fprintf(f.Writer, "  %s %s\n", seq, line)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

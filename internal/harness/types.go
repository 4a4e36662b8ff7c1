package harness

import (
	"github.com/roach88/choreo/internal/command"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Commands is every emitted command, in seq order.
	Commands []command.Command `json:"commands"`

	// Active is the running performance count after the last step.
	Active int `json:"active"`

	// Started lists the performance ids each signal step started, one entry
	// per signal step.
	Started [][]string `json:"started,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// SessionID is set when the run was journaled.
	SessionID string `json:"session_id,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Commands: []command.Command{},
		Errors:   []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Lines returns the trace form of Commands.
func (r *Result) Lines() []string {
	return command.Lines(r.Commands)
}

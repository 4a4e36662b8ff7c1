package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/choreo/internal/easing"
	"github.com/roach88/choreo/internal/ir"
)

// Validation error codes (E120-E129)
const (
	ErrMissingID         = "E120" // id is required
	ErrMissingSignalType = "E121" // on is required
	ErrEmptyAction       = "E122" // every step needs an action
	ErrInvalidDuration   = "E123" // duration must be finite and >= 0
	ErrUnknownEasing     = "E124" // easing not in the table (falls back to linear)
	ErrInvalidStepTree   = "E125" // cyclic, too deep or too large
	ErrEmptySignalRef    = "E126" // "signal." with no field
	ErrDuplicateID       = "E127" // id used twice
)

// ValidationError represents an authoring error in a choreography.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks one choreography against authoring rules.
// Returns all errors found (does not fail-fast).
//
// The runtime itself accepts some of what is reported here (an unknown
// easing plays as linear, an empty action is forwarded as-is); Validate is
// stricter so that authors hear about it before a renderer does.
func Validate(c ir.Choreography) []ValidationError {
	return ValidateWithLimits(c, ir.DefaultLimits(), easing.Default())
}

// ValidateWithLimits is Validate with explicit tree limits and easing table.
func ValidateWithLimits(c ir.Choreography, limits ir.Limits, easings *easing.Table) []ValidationError {
	var errs []ValidationError
	prefix := "choreography"
	if c.ID != "" {
		prefix = "choreography." + c.ID
	}

	// E120: id is required
	if strings.TrimSpace(c.ID) == "" {
		errs = append(errs, ValidationError{
			Field:   "id",
			Message: "id is required and must be non-empty",
			Code:    ErrMissingID,
		})
	}

	// E121: on is required
	if strings.TrimSpace(c.On) == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".on",
			Message: "on (signal type) is required",
			Code:    ErrMissingSignalType,
		})
	}

	arena, err := ir.BuildArena(c.Steps, limits)
	if err != nil {
		var te *ir.TreeError
		if errors.As(err, &te) {
			code := ErrInvalidStepTree
			if te.Kind == ir.TreeInvalidDuration {
				code = ErrInvalidDuration
			}
			errs = append(errs, ValidationError{
				Field:   prefix + "." + te.Path,
				Message: te.Error(),
				Code:    code,
			})
			return errs
		}
		return append(errs, ValidationError{Field: prefix + ".steps", Message: err.Error(), Code: ErrInvalidStepTree})
	}

	for i := range arena.Nodes {
		n := arena.Node(i)
		field := prefix + "." + n.Path

		// E122: action is required
		if strings.TrimSpace(n.Action) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".action",
				Message: "action is required",
				Code:    ErrEmptyAction,
			})
		}

		// E124: easing should be known
		if n.Easing != "" && !easings.Known(n.Easing) {
			errs = append(errs, ValidationError{
				Field:   field + ".easing",
				Message: fmt.Sprintf("unknown easing %q (plays as linear), known: %s", n.Easing, strings.Join(easings.Names(), ", ")),
				Code:    ErrUnknownEasing,
			})
		}

		// E126: signal reference must name a field
		for _, key := range sortedParamKeys(n.Params) {
			if lit, ok := n.Params[key].(ir.Literal); ok {
				if s, isStr := lit.Value.(ir.String); isStr && string(s) == ir.SignalPrefix {
					errs = append(errs, ValidationError{
						Field:   field + ".params." + key,
						Message: `signal reference must name a field, e.g. "signal.to"`,
						Code:    ErrEmptySignalRef,
					})
				}
			}
		}
	}

	return errs
}

// ValidateAll validates each choreography and reports duplicate ids (E127).
func ValidateAll(defs []ir.Choreography) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]int, len(defs))

	for i, c := range defs {
		errs = append(errs, Validate(c)...)
		if c.ID == "" {
			continue
		}
		if first, dup := seen[c.ID]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("choreographies[%d].id", i),
				Message: fmt.Sprintf("duplicate id %q (first defined at choreographies[%d])", c.ID, first),
				Code:    ErrDuplicateID,
			})
			continue
		}
		seen[c.ID] = i
	}
	return errs
}

func sortedParamKeys(params map[string]ir.Param) []string {
	if len(params) == 0 {
		return nil
	}
	obj := make(ir.Object, len(params))
	for k := range params {
		obj[k] = ir.Null{}
	}
	return obj.SortedKeys()
}

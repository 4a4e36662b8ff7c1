package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/choreo/internal/command"
	"github.com/roach88/choreo/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string            // Assertion type for categorization
	Expected string            // Human-readable expected outcome
	Actual   string            // Human-readable actual outcome
	Trace    []command.Command // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, c := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", c.Seq, c)
		}
	}

	return buf.String()
}

// Matches reports whether c satisfies every set field of m.
func (m Match) Matches(c command.Command) bool {
	if m.Kind != "" && c.Kind.String() != m.Kind {
		return false
	}
	if m.Performance != "" && c.PerformanceID != m.Performance {
		return false
	}
	if m.Action != "" && c.Action != m.Action {
		return false
	}
	if m.Entity != "" && c.Entity != m.Entity {
		return false
	}
	if m.Easing != "" && c.Easing != m.Easing {
		return false
	}
	if m.Correlation != "" && c.CorrelationID != m.Correlation {
		return false
	}
	if m.InterruptedBy != "" && c.InterruptedBy != m.InterruptedBy {
		return false
	}
	return matchParams(c.Params, m.Params)
}

// String describes the match for failure messages.
func (m Match) String() string {
	var parts []string
	add := func(name, v string) {
		if v != "" {
			parts = append(parts, name+"="+v)
		}
	}
	add("kind", m.Kind)
	add("performance", m.Performance)
	add("action", m.Action)
	add("entity", m.Entity)
	add("easing", m.Easing)
	add("correlation", m.Correlation)
	add("interrupted_by", m.InterruptedBy)
	if len(m.Params) > 0 {
		keys := make([]string, 0, len(m.Params))
		for k := range m.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("params.%s=%v", k, m.Params[k]))
		}
	}
	if len(parts) == 0 {
		return "any command"
	}
	return strings.Join(parts, " ")
}

// matchParams checks that actual contains every expected param (subset
// match). Numbers compare by value, so 1 matches 1.0.
func matchParams(actual ir.Object, expected map[string]any) bool {
	for key, raw := range expected {
		want, err := ir.FromAny(raw)
		if err != nil {
			return false
		}
		got, ok := actual[key]
		if !ok || !ir.Equal(got, want) {
			return false
		}
	}
	return true
}

// assertCommandContains checks that some command matches.
func assertCommandContains(trace []command.Command, a Assertion) error {
	for _, c := range trace {
		if a.Match.Matches(c) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertCommandContains,
		Expected: a.Match.String(),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertCommandOrder checks that the listed matches occur in order. Each
// match consumes the first matching command after the previous one, so
// intervening commands are allowed.
func assertCommandOrder(trace []command.Command, a Assertion) error {
	pos := 0
	for i, m := range a.Commands {
		found := false
		for pos < len(trace) {
			c := trace[pos]
			pos++
			if m.Matches(c) {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertCommandOrder,
				Expected: fmt.Sprintf("commands[%d] (%s) after commands[%d]", i, m, max(i-1, 0)),
				Actual:   "no matching command in the remaining trace",
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertCommandCount checks the number of matching commands.
func assertCommandCount(trace []command.Command, a Assertion) error {
	count := 0
	for _, c := range trace {
		if a.Match.Matches(c) {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertCommandCount,
			Expected: fmt.Sprintf("%d commands matching %s", *a.Count, a.Match),
			Actual:   fmt.Sprintf("%d commands", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertActiveCount checks the running performance count.
func assertActiveCount(active int, a Assertion) error {
	if active != *a.Count {
		return &AssertionError{
			Type:     AssertActiveCount,
			Expected: fmt.Sprintf("%d active performances", *a.Count),
			Actual:   fmt.Sprintf("%d active performances", active),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertCommandContains:
			err = assertCommandContains(result.Commands, a)
		case AssertCommandOrder:
			err = assertCommandOrder(result.Commands, a)
		case AssertCommandCount:
			if a.Count == nil {
				err = fmt.Errorf("assertion[%d]: command_count requires count", i)
			} else {
				err = assertCommandCount(result.Commands, a)
			}
		case AssertActiveCount:
			if a.Count == nil {
				err = fmt.Errorf("assertion[%d]: active_count requires count", i)
			} else {
				err = assertActiveCount(result.Active, a)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

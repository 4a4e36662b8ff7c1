package harness

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceText renders a result's commands as golden file content: one trace
// line per command, newline terminated.
func TraceText(result *Result) []byte {
	if len(result.Commands) == 0 {
		return nil
	}
	return []byte(strings.Join(result.Lines(), "\n") + "\n")
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, TraceText(result))
}

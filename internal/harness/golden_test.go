package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/ir"
)

func mustLoad(t *testing.T, s *Scenario) []ir.Choreography {
	t.Helper()
	defs, err := compiler.LoadFiles(s.Choreographies...)
	require.NoError(t, err)
	return defs
}

// TestScenarios runs every scenario under testdata/scenarios. Those with a
// golden file also have their trace compared.
//
// Regenerate golden files with:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	tests := []struct {
		name   string
		golden bool
	}{
		{name: "task_dispatch", golden: true},
		{name: "error_interrupt", golden: true},
		{name: "lamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", tt.name+".yaml"))
			require.NoError(t, err)

			var result *Result
			if tt.golden {
				result, err = RunWithGolden(t, scenario)
			} else {
				result, err = Run(scenario)
			}
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion errors: %v", result.Errors)
		})
	}
}

func TestRunWithGolden_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "task_dispatch.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, TraceText(first), TraceText(second))
	AssertGolden(t, scenario.Name, second)
}

func TestTraceText_Empty(t *testing.T) {
	assert.Nil(t, TraceText(NewResult()))
}

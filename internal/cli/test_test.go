package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandGoldenMatch(t *testing.T) {
	out, err := execute(t, "test", scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ dispatch (golden match)")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", scenariosDir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, TestResult{
		Scenarios: []ScenarioResult{{Name: "dispatch", Pass: true, Golden: "match"}},
		Passed:    1,
		Total:     1,
	}, resp.Data)
}

func TestTestCommandUpdateThenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "finished", []int{800, 1200, 300}, 0)

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ finished (golden updated)")

	want, err := os.ReadFile(filepath.Join(scenariosDir, "golden", "dispatch.golden"))
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, "golden", "finished.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	out, err = execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ finished (golden match)")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "finished.golden"), []byte("start perf-9 nothing\n"), 0o644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ finished")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandFailures(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "passes", []int{800, 1200, 300}, 0)
	writeScenario(t, dir, "fails", []int{100}, 0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.yaml"), []byte("name: [\n"), 0o644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ passes")
	assert.Contains(t, out, "✗ fails")
	assert.Contains(t, out, "✗ garbage")
	assert.Contains(t, out, "failed to load scenario")
	assert.Contains(t, out, "Test Summary: 1 passed, 2 failed, 3 total")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(t, "test", scenariosDir, "--filter", "nothing*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	out, err = execute(t, "test", scenariosDir, "--filter", "dis*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")

	_, err = execute(t, "test", scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestTestCommandMissingDir(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "b", "golden", "x.golden"), goldenFilePath(filepath.Join("a", "b", "x.yaml")))
}

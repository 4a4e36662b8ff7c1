package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roach88/choreo/internal/ir"
)

const (
	definitionsDir = "testdata/definitions"
	scenariosDir   = "testdata/scenarios"
)

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "choreo.db")
}

// writeScenario writes a scenario into dir that signals task_dispatch,
// advances the clock once per entry in advances and expects activeCount
// performances afterwards.
func writeScenario(t *testing.T, dir, name string, advances []int, activeCount int) string {
	t.Helper()
	defs, err := filepath.Abs(filepath.Join(definitionsDir, "task_dispatch.yaml"))
	if err != nil {
		t.Fatalf("abs: %v", err)
	}

	var steps strings.Builder
	for _, ms := range advances {
		fmt.Fprintf(&steps, "  - advance: %d\n", ms)
	}
	body := fmt.Sprintf(`name: %s
description: generated
choreographies:
  - %s
steps:
  - signal: task_dispatch
    payload: {from: orchestrator, to: agent-solver}
%sassertions:
  - type: active_count
    count: %d
`, name, defs, steps.String(), activeCount)

	path := filepath.Join(dir, name+".yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func mustCanonical(t *testing.T, v any) string {
	t.Helper()
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	return string(data)
}

// fireJournaled fires task_dispatch into db and returns the session id.
func fireJournaled(t *testing.T, db string, extra ...string) string {
	t.Helper()
	args := append([]string{"--format", "json", "fire", definitionsDir,
		"--signal", "task_dispatch",
		"--payload", `{"from":"orchestrator","to":"agent-solver"}`,
		"--correlation", "task-42",
		"--advance", "1000",
		"--frame-ms", "100",
		"--db", db,
	}, extra...)
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("fire: %v\n%s", err, out)
	}
	var resp struct {
		Data FireResult `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode fire output: %v", err)
	}
	if resp.Data.SessionID == "" {
		t.Fatalf("fire did not report a session id")
	}
	return resp.Data.SessionID
}

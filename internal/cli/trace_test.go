package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/store"
)

func TestTraceListsSessions(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found in database.")

	id := fireJournaled(t, db)
	out, err = execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Sessions ===")
	assert.Contains(t, out, id+"  fire task_dispatch  inputs=11 commands=13")
}

func TestTraceSession(t *testing.T) {
	db := tempDB(t)
	id := fireJournaled(t, db)

	out, err := execute(t, "trace", "--db", db, "--session", id)
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for Session: "+id)
	assert.Contains(t, out, "Label: fire task_dispatch")
	assert.Contains(t, out, `#1 signal task_dispatch correlation=task-42 payload={"from":"orchestrator","to":"agent-solver"}`)
	assert.Contains(t, out, "  [1] start perf-1 move peon")
	assert.Contains(t, out, "#9 tick 100ms")
	assert.Contains(t, out, "[11] start perf-1 fly pigeon")
	assert.Contains(t, out, "Signals:  1")
	assert.Contains(t, out, "Ticks:    10 (1000ms)")
	assert.Contains(t, out, "Commands: 13")
	assert.Contains(t, out, "update:   9")
	assert.NotContains(t, out, "Definitions:")
}

func TestTraceSessionKindFilter(t *testing.T) {
	db := tempDB(t)
	id := fireJournaled(t, db)

	out, err := execute(t, "trace", "--db", db, "--session", id, "--kind", "start", "--kind", "complete")
	require.NoError(t, err)
	assert.Contains(t, out, "Commands: 3")
	assert.NotContains(t, out, "update")
	// Ticks that produced nothing after filtering are hidden.
	assert.NotContains(t, out, "#2 tick")
	assert.Contains(t, out, "#9 tick 100ms")

	_, err = execute(t, "trace", "--db", db, "--session", id, "--kind", "wobble")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --kind")
}

func TestTraceSessionJSON(t *testing.T) {
	db := tempDB(t)
	id := fireJournaled(t, db)

	out, err := execute(t, "--format", "json", "trace", "--db", db, "--session", id)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, id, resp.Data.Session.ID)
	require.Len(t, resp.Data.Timeline, 11)
	assert.Equal(t, store.InputSignal, resp.Data.Timeline[0].Input.Kind)
	assert.Equal(t, "task-42", resp.Data.Timeline[0].Input.CorrelationID)
	assert.Equal(t, TraceStats{
		Signals:   1,
		Ticks:     10,
		ElapsedMs: 1000,
		Commands:  13,
		ByKind:    map[string]int{"start": 2, "update": 9, "complete": 1, "execute": 1},
	}, resp.Data.Stats)
}

func TestTraceVerboseShowsQuietTicksAndHeader(t *testing.T) {
	db := tempDB(t)
	id := fireJournaled(t, db)

	out, err := execute(t, "-v", "trace", "--db", db, "--session", id, "--kind", "interrupt")
	require.NoError(t, err)
	assert.Contains(t, out, "Definitions: ")
	assert.Contains(t, out, "#2 tick 100ms")
	assert.Contains(t, out, "Commands: 0")
}

func TestTraceUnknownSession(t *testing.T) {
	_, err := execute(t, "trace", "--db", tempDB(t), "--session", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "session not found: nope")
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/roach88/choreo/internal/command"
	"github.com/roach88/choreo/internal/ir"
)

func TestReadSession_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSession(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadSession() error = %v, want sql.ErrNoRows", err)
	}
}

func TestListSessions_Ordered(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "b")
	createTestSession(t, s, "a")
	createTestSession(t, s, "c")

	sessions, err := s.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	var ids []string
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("ids = %v, want [a b c]", ids)
	}
}

func TestReadInputs_SeqOrderAndPayload(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "sess-1")

	// Written out of order on purpose.
	writes := []Input{
		{Seq: 2, Kind: InputTick, DeltaMs: 16.5},
		{Seq: 1, Kind: InputSignal, Signal: ir.Signal{
			Type:    "task_dispatch",
			Payload: ir.Object{"to": ir.String("agent-solver"), "count": ir.Int(9007199254740993)},
		}, CorrelationID: "task-42"},
	}
	for _, in := range writes {
		if err := s.WriteInput(ctx, "sess-1", in); err != nil {
			t.Fatalf("WriteInput(%d) failed: %v", in.Seq, err)
		}
	}

	inputs, err := s.ReadInputs(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ReadInputs() failed: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("len(inputs) = %d, want 2", len(inputs))
	}

	sig := inputs[0]
	if sig.Seq != 1 || sig.Kind != InputSignal {
		t.Errorf("inputs[0] = seq %d kind %s, want seq 1 signal", sig.Seq, sig.Kind)
	}
	if sig.Signal.Type != "task_dispatch" || sig.CorrelationID != "task-42" {
		t.Errorf("signal = %+v corr %q", sig.Signal, sig.CorrelationID)
	}
	if got := sig.Signal.Payload["count"]; got != ir.Int(9007199254740993) {
		t.Errorf("count = %v, want exact Int above 2^53", got)
	}

	tick := inputs[1]
	if tick.Kind != InputTick || tick.DeltaMs != 16.5 {
		t.Errorf("inputs[1] = %+v, want tick 16.5", tick)
	}
}

func TestReadInputs_EmptySession(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "sess-1")

	inputs, err := s.ReadInputs(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("ReadInputs() failed: %v", err)
	}
	if inputs == nil || len(inputs) != 0 {
		t.Errorf("ReadInputs() = %v, want empty non-nil slice", inputs)
	}
}

func TestReadCommands_RoundTripAndFilter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "sess-1")

	cmds := []command.Command{
		{Seq: 1, Kind: command.KindStart, PerformanceID: "perf-1", Action: "move", Entity: "peon",
			Params: ir.Object{"to": ir.String("agent-solver")}, Easing: "easeInOut", DurationMs: 800},
		{Seq: 2, Kind: command.KindUpdate, PerformanceID: "perf-1", Action: "move", Entity: "peon", Progress: 1.0 / 3},
		{Seq: 3, Kind: command.KindInterrupt, PerformanceID: "perf-1", CorrelationID: "task-42", InterruptedBy: "error_alert"},
	}
	for i, cmd := range cmds {
		if err := s.WriteCommand(ctx, "sess-1", int64(i+1), cmd); err != nil {
			t.Fatalf("WriteCommand(%d) failed: %v", cmd.Seq, err)
		}
	}

	got, err := s.ReadCommands(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ReadCommands() failed: %v", err)
	}
	if len(got) != len(cmds) {
		t.Fatalf("len = %d, want %d", len(got), len(cmds))
	}
	for i := range cmds {
		if got[i].Seq != cmds[i].Seq || got[i].String() != cmds[i].String() {
			t.Errorf("command %d = %q, want %q", i, got[i].String(), cmds[i].String())
		}
	}
	if got[1].Progress != 1.0/3 {
		t.Errorf("progress = %v, want exact 1/3", got[1].Progress)
	}
	if got[1].Params != nil {
		t.Errorf("update params = %v, want nil", got[1].Params)
	}

	filtered, err := s.ReadCommands(ctx, "sess-1", command.KindStart, command.KindInterrupt)
	if err != nil {
		t.Fatalf("ReadCommands(filter) failed: %v", err)
	}
	if len(filtered) != 2 || filtered[0].Kind != command.KindStart || filtered[1].Kind != command.KindInterrupt {
		t.Errorf("filtered = %v", command.Lines(filtered))
	}
}

func TestReadCommandsForInput(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "sess-1")

	writes := []struct {
		inputSeq int64
		cmd      command.Command
	}{
		{1, command.Command{Seq: 1, Kind: command.KindStart, PerformanceID: "perf-1", Action: "move", Entity: "peon"}},
		{2, command.Command{Seq: 2, Kind: command.KindComplete, PerformanceID: "perf-1", Action: "move", Entity: "peon"}},
		{2, command.Command{Seq: 3, Kind: command.KindExecute, PerformanceID: "perf-1", Action: "spawn", Entity: "pigeon"}},
	}
	for _, w := range writes {
		if err := s.WriteCommand(ctx, "sess-1", w.inputSeq, w.cmd); err != nil {
			t.Fatalf("WriteCommand() failed: %v", err)
		}
	}

	got, err := s.ReadCommandsForInput(ctx, "sess-1", 2)
	if err != nil {
		t.Fatalf("ReadCommandsForInput() failed: %v", err)
	}
	if len(got) != 2 || got[0].Seq != 2 || got[1].Seq != 3 {
		t.Errorf("got %v, want seq 2 and 3", command.Lines(got))
	}
}

func TestGetLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "sess-1")

	in, cmd, err := s.GetLastSeq(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetLastSeq() failed: %v", err)
	}
	if in != 0 || cmd != 0 {
		t.Errorf("empty session = (%d, %d), want (0, 0)", in, cmd)
	}

	if err := s.WriteInput(ctx, "sess-1", Input{Seq: 4, Kind: InputTick}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteCommand(ctx, "sess-1", 4, command.Command{Seq: 9, Kind: command.KindComplete, PerformanceID: "perf-1"}); err != nil {
		t.Fatal(err)
	}

	in, cmd, err = s.GetLastSeq(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetLastSeq() failed: %v", err)
	}
	if in != 4 || cmd != 9 {
		t.Errorf("GetLastSeq() = (%d, %d), want (4, 9)", in, cmd)
	}
}

package store

import (
	"context"
	"testing"

	"github.com/roach88/choreo/internal/command"
	"github.com/roach88/choreo/internal/ir"
)

func TestCreateSession_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	createTestSession(t, s, "sess-1")
	// Same id again is ignored, not an error.
	if err := s.CreateSession(ctx, Session{ID: "sess-1", DefinitionsHash: "other"}); err != nil {
		t.Fatalf("second CreateSession() failed: %v", err)
	}

	sess, err := s.ReadSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if sess.DefinitionsHash != "test-hash" {
		t.Errorf("DefinitionsHash = %q, want first write to win", sess.DefinitionsHash)
	}
}

func TestWriteInput_RequiresSession(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteInput(context.Background(), "missing", Input{Seq: 1, Kind: InputTick, DeltaMs: 16})
	if err == nil {
		t.Fatal("expected foreign key error, got nil")
	}
}

func TestWriteInput_DuplicateSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "sess-1")

	in := Input{Seq: 1, Kind: InputTick, DeltaMs: 16}
	if err := s.WriteInput(ctx, "sess-1", in); err != nil {
		t.Fatalf("WriteInput() failed: %v", err)
	}
	if err := s.WriteInput(ctx, "sess-1", in); err == nil {
		t.Error("expected unique constraint error for duplicate seq")
	}
}

func TestWriteInput_RejectsUnknownKind(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "sess-1")

	err := s.WriteInput(context.Background(), "sess-1", Input{Seq: 1, Kind: "pause"})
	if err == nil {
		t.Error("expected CHECK constraint error for unknown kind")
	}
}

func TestWriteCommand_DuplicateSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "sess-1")

	cmd := command.Command{Seq: 1, Kind: command.KindComplete, PerformanceID: "perf-1", Action: "move", Entity: "peon"}
	if err := s.WriteCommand(ctx, "sess-1", 1, cmd); err != nil {
		t.Fatalf("WriteCommand() failed: %v", err)
	}
	if err := s.WriteCommand(ctx, "sess-1", 1, cmd); err == nil {
		t.Error("expected unique constraint error for duplicate seq")
	}
}

func TestMarshalParams_EmptyStoredAsEmptyString(t *testing.T) {
	got, err := marshalParams(ir.Object{})
	if err != nil {
		t.Fatalf("marshalParams() failed: %v", err)
	}
	if got != "" {
		t.Errorf("marshalParams(empty) = %q, want \"\"", got)
	}

	back, err := unmarshalParams(got)
	if err != nil {
		t.Fatalf("unmarshalParams() failed: %v", err)
	}
	if back != nil {
		t.Errorf("unmarshalParams(\"\") = %v, want nil", back)
	}
}

func TestMarshalPayload_Canonical(t *testing.T) {
	got, err := marshalPayload(ir.Object{"to": ir.String("agent-solver"), "from": ir.String("orchestrator"), "n": ir.Int(3)})
	if err != nil {
		t.Fatalf("marshalPayload() failed: %v", err)
	}
	want := `{"from":"orchestrator","n":3,"to":"agent-solver"}`
	if got != want {
		t.Errorf("marshalPayload() = %s, want %s", got, want)
	}
}

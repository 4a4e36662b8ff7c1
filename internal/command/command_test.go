package command

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/ir"
)

func TestCommandString(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			name: "start",
			cmd: Command{Kind: KindStart, PerformanceID: "perf-1", Action: "move", Entity: "peon",
				Params: ir.Object{"to": ir.String("agent-solver")}, Easing: "easeInOut", DurationMs: 800},
			want: `start perf-1 move peon params={"to":"agent-solver"} easing=easeInOut duration=800`,
		},
		{
			name: "start without params",
			cmd:  Command{Kind: KindStart, PerformanceID: "perf-1", Action: "fade", Entity: "e", Easing: "linear", DurationMs: 12.5},
			want: `start perf-1 fade e easing=linear duration=12.5`,
		},
		{
			name: "update",
			cmd:  Command{Kind: KindUpdate, PerformanceID: "perf-2", Action: "fly", Entity: "pigeon", Progress: 1.0 / 3},
			want: `update perf-2 fly pigeon progress=0.333333`,
		},
		{
			name: "complete",
			cmd:  Command{Kind: KindComplete, PerformanceID: "perf-2", Action: "fly", Entity: "pigeon"},
			want: `complete perf-2 fly pigeon`,
		},
		{
			name: "execute",
			cmd:  Command{Kind: KindExecute, PerformanceID: "perf-1", Action: "spawn", Entity: "pigeon", Params: ir.Object{"at": ir.String("orchestrator")}},
			want: `execute perf-1 spawn pigeon params={"at":"orchestrator"}`,
		},
		{
			name: "interrupt",
			cmd:  Command{Kind: KindInterrupt, PerformanceID: "perf-1", CorrelationID: "task-42", InterruptedBy: "error_alert"},
			want: `interrupt perf-1 correlation=task-42 by=error_alert`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.String())
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "0", FormatNumber(-0.0000001))
	assert.Equal(t, "1", FormatNumber(1))
	assert.Equal(t, "100", FormatNumber(100))
	assert.Equal(t, "0.25", FormatNumber(0.25))
	assert.Equal(t, "-1.5", FormatNumber(-1.5))
}

func TestKindText(t *testing.T) {
	for _, k := range Kinds() {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var back Kind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, k, back)
	}

	_, err := ParseKind("explode")
	assert.Error(t, err)
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestCommandJSONFieldNaming(t *testing.T) {
	data, err := json.Marshal(Command{Seq: 3, Kind: KindInterrupt, PerformanceID: "p", CorrelationID: "c", InterruptedBy: "x"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"seq":3,"kind":"interrupt","performance_id":"p","correlation_id":"c","interrupted_by":"x"}`, string(data))
}

func TestCommandJSONKeepsZeroDurationAndProgress(t *testing.T) {
	start, err := json.Marshal(Command{Seq: 1, Kind: KindStart, PerformanceID: "p", Action: "move", Entity: "peon", Easing: "linear"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":1,"kind":"start","performance_id":"p","action":"move","entity":"peon","easing":"linear","duration_ms":0}`, string(start))

	update, err := json.Marshal(Command{Seq: 2, Kind: KindUpdate, PerformanceID: "p", Action: "move", Entity: "peon"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":2,"kind":"update","performance_id":"p","action":"move","entity":"peon","progress":0}`, string(update))

	complete, err := json.Marshal(Command{Seq: 3, Kind: KindComplete, PerformanceID: "p", Action: "move", Entity: "peon", Progress: 1})
	require.NoError(t, err)
	assert.NotContains(t, string(complete), "progress")

	var back Command
	require.NoError(t, json.Unmarshal(update, &back))
	assert.Equal(t, KindUpdate, back.Kind)
	assert.Equal(t, 0.0, back.Progress)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Emit(Command{Kind: KindStart, PerformanceID: "a"})
	r.Emit(Command{Kind: KindComplete, PerformanceID: "a"})
	r.Emit(Command{Kind: KindStart, PerformanceID: "b"})

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 2, r.Count(KindStart))
	assert.Len(t, r.Filter(func(c Command) bool { return c.PerformanceID == "b" }), 1)

	cmds := r.Commands()
	cmds[0].PerformanceID = "mutated"
	assert.Equal(t, "a", r.Commands()[0].PerformanceID)

	r.Reset()
	assert.Equal(t, 0, r.Len())
}

func TestRecorderConcurrent(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Emit(Command{Kind: KindUpdate})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, r.Count(KindUpdate))
}

func TestMulti(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	var order []string
	sink := Multi(a, nil, SinkFunc(func(c Command) { order = append(order, c.PerformanceID) }), b)

	sink.Emit(Command{Kind: KindExecute, PerformanceID: "p1"})
	sink.Emit(Command{Kind: KindExecute, PerformanceID: "p2"})

	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []string{"p1", "p2"}, order)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LogSink{Logger: logger}.Emit(Command{Seq: 1, Kind: KindInterrupt, PerformanceID: "perf-1", CorrelationID: "c1", InterruptedBy: "err"})

	out := buf.String()
	assert.Contains(t, out, "command emitted")
	assert.Contains(t, out, "kind=interrupt")
	assert.Contains(t, out, "correlation_id=c1")
}

func TestLogSinkSkipsAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogSink{Logger: logger}.Emit(Command{Kind: KindStart})
	assert.Empty(t, buf.String())
}

func TestSequencer(t *testing.T) {
	s := NewSequencer()
	assert.Equal(t, int64(1), s.Next())
	assert.Equal(t, int64(2), s.Next())
	assert.Equal(t, int64(2), s.Current())

	s.Reset()
	assert.Equal(t, int64(1), s.Next())

	resumed := NewSequencerAt(10)
	assert.Equal(t, int64(11), resumed.Next())
}

// Package command defines the records the runtime emits and the Sink that
// receives them.
//
// Sinks are called synchronously, in emission order, from inside
// HandleSignal or Tick. A Sink must not call back into the runtime.
package command

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/choreo/internal/ir"
)

// Kind distinguishes the five command shapes.
type Kind int

const (
	KindStart Kind = iota + 1
	KindUpdate
	KindComplete
	KindExecute
	KindInterrupt
)

var kindNames = map[Kind]string{
	KindStart:     "start",
	KindUpdate:    "update",
	KindComplete:  "complete",
	KindExecute:   "execute",
	KindInterrupt: "interrupt",
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindStart, KindUpdate, KindComplete, KindExecute, KindInterrupt}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown command kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("invalid command kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Command is one instruction for the renderer. Which fields are set depends
// on Kind:
//
//	start     PerformanceID Action Entity Params Easing DurationMs
//	update    PerformanceID Action Entity Progress
//	complete  PerformanceID Action Entity
//	execute   PerformanceID Action Entity Params
//	interrupt PerformanceID CorrelationID InterruptedBy
type Command struct {
	Seq           int64     `json:"seq"`
	Kind          Kind      `json:"kind"`
	PerformanceID string    `json:"performance_id"`
	Action        string    `json:"action,omitempty"`
	Entity        string    `json:"entity,omitempty"`
	Params        ir.Object `json:"params,omitempty"`
	Easing        string    `json:"easing,omitempty"`
	DurationMs    float64   `json:"duration_ms,omitempty"`
	Progress      float64   `json:"progress,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	InterruptedBy string    `json:"interrupted_by,omitempty"`
}

// MarshalJSON always writes duration_ms for start and progress for update,
// zero included. Other kinds omit both.
func (c Command) MarshalJSON() ([]byte, error) {
	type plain Command
	out := struct {
		plain
		DurationMs *float64 `json:"duration_ms,omitempty"`
		Progress   *float64 `json:"progress,omitempty"`
	}{plain: plain(c)}
	switch c.Kind {
	case KindStart:
		out.DurationMs = &c.DurationMs
	case KindUpdate:
		out.Progress = &c.Progress
	}
	return json.Marshal(out)
}

// String renders the one-line trace form used by golden files, the journal
// diff and the CLI. Seq is left out so traces compare across sessions.
func (c Command) String() string {
	var b strings.Builder
	b.WriteString(c.Kind.String())
	b.WriteByte(' ')
	b.WriteString(c.PerformanceID)

	switch c.Kind {
	case KindInterrupt:
		fmt.Fprintf(&b, " correlation=%s by=%s", c.CorrelationID, c.InterruptedBy)
		return b.String()
	default:
		b.WriteByte(' ')
		b.WriteString(c.Action)
		b.WriteByte(' ')
		b.WriteString(c.Entity)
	}

	switch c.Kind {
	case KindStart:
		writeParams(&b, c.Params)
		fmt.Fprintf(&b, " easing=%s duration=%s", c.Easing, FormatNumber(c.DurationMs))
	case KindUpdate:
		b.WriteString(" progress=")
		b.WriteString(FormatNumber(c.Progress))
	case KindExecute:
		writeParams(&b, c.Params)
	}
	return b.String()
}

func writeParams(b *strings.Builder, params ir.Object) {
	if len(params) == 0 {
		return
	}
	data, err := ir.MarshalCanonical(params)
	if err != nil {
		fmt.Fprintf(b, " params=<%v>", err)
		return
	}
	b.WriteString(" params=")
	b.Write(data)
}

// FormatNumber prints f in its shortest round-trip form, rounded to six
// decimals so traces do not depend on the last bits of float arithmetic.
func FormatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// Lines renders commands in trace form, one per element.
func Lines(cmds []Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.String()
	}
	return out
}

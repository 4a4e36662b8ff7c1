// Package testutil holds fixtures shared by tests across packages.
package testutil

import (
	"io"
	"log/slog"

	"github.com/roach88/choreo/internal/ir"
)

// Fixture choreography ids.
const (
	TaskDispatchID = "task_dispatch"
	ErrorAlertID   = "error_alert"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TaskDispatch is the peon/pigeon delivery choreography:
//
//	move(peon -> to, easeInOut, 800)
//	  spawn(pigeon @ from)
//	  fly(pigeon -> to, arc, 1200)
//	    destroy(pigeon)
//	    flash(agent @ to, gold, 300)
//
// It emits 3 start, 3 complete and 2 execute commands and drains after 2300ms.
func TaskDispatch() ir.Choreography {
	return ir.Choreography{
		ID: TaskDispatchID,
		On: "task_dispatch",
		Steps: []ir.Step{
			ir.Animated("move", "peon", map[string]ir.Param{
				"to": ir.SignalRef{Field: "to"},
			}, 800, "easeInOut",
				ir.Instant("spawn", "pigeon", map[string]ir.Param{
					"at": ir.SignalRef{Field: "from"},
				}),
				ir.Animated("fly", "pigeon", map[string]ir.Param{
					"to": ir.SignalRef{Field: "to"},
				}, 1200, "arc",
					ir.Instant("destroy", "pigeon", nil),
					ir.Animated("flash", "agent", map[string]ir.Param{
						"target": ir.SignalRef{Field: "to"},
						"color":  ir.Literal{Value: ir.String("gold")},
					}, 300, "linear"),
				),
			),
		},
	}
}

// ErrorAlert reacts to "error" signals, interrupting anything with the same
// correlation id. All its steps are instant, so it completes on activation.
func ErrorAlert() ir.Choreography {
	return ir.Choreography{
		ID:         ErrorAlertID,
		On:         "error",
		Interrupts: true,
		Steps: []ir.Step{
			ir.Instant("spawn", "skull", map[string]ir.Param{
				"at": ir.SignalRef{Field: "agent"},
			}),
			ir.Instant("flash", "skull", map[string]ir.Param{
				"color": ir.Literal{Value: ir.String("red")},
			},
				ir.Instant("playSound", "alarm", map[string]ir.Param{
					"volume": ir.Literal{Value: ir.Float(0.8)},
				}),
			),
		},
	}
}

// TaskDispatchSignal is the signal TaskDispatch reacts to.
func TaskDispatchSignal() ir.Signal {
	return ir.Signal{
		Type: "task_dispatch",
		Payload: ir.Object{
			"taskId": ir.String("task-42"),
			"from":   ir.String("orchestrator"),
			"to":     ir.String("agent-solver"),
		},
	}
}

// ErrorSignal is the signal ErrorAlert reacts to.
func ErrorSignal() ir.Signal {
	return ir.Signal{
		Type: "error",
		Payload: ir.Object{
			"agent":   ir.String("agent-solver"),
			"message": ir.String("tool call failed"),
		},
	}
}

package engine

import (
	"github.com/roach88/choreo/internal/easing"
	"github.com/roach88/choreo/internal/ir"
)

// Status is the lifecycle state of a performance.
type Status int

const (
	StatusRunning Status = iota + 1
	StatusInterrupted
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusInterrupted:
		return "interrupted"
	case StatusCompleted:
		return "completed"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// performance is one running instance of a choreography. Owned exclusively
// by a Registry and dropped from it the moment it stops running.
type performance struct {
	id             string
	choreographyID string
	correlationID  string
	originPayload  ir.Object
	status         Status
	arena          *ir.Arena
	branches       []*stepRun
}

// stepRun is one in-flight animated step.
type stepRun struct {
	node       int
	elapsedMs  float64
	durationMs float64
	ease       easing.Func
}

// progress returns normalized time and eased progress for the branch.
// A zero duration is complete as soon as it is ticked.
func (b *stepRun) progress() (t, eased float64) {
	if b.durationMs <= 0 {
		t = 1
	} else {
		t = b.elapsedMs / b.durationMs
	}
	t = max(0, min(1, t))
	return t, b.ease(t)
}

// PerformanceInfo is a read-only snapshot of a running performance.
type PerformanceInfo struct {
	ID             string       `json:"id"`
	ChoreographyID string       `json:"choreography_id"`
	CorrelationID  string       `json:"correlation_id,omitempty"`
	Status         Status       `json:"status"`
	Branches       []BranchInfo `json:"branches"`
}

// BranchInfo describes one live animated step.
type BranchInfo struct {
	Action     string  `json:"action"`
	Entity     string  `json:"entity"`
	ElapsedMs  float64 `json:"elapsed_ms"`
	DurationMs float64 `json:"duration_ms"`
}

func (p *performance) info() PerformanceInfo {
	info := PerformanceInfo{
		ID:             p.id,
		ChoreographyID: p.choreographyID,
		CorrelationID:  p.correlationID,
		Status:         p.status,
		Branches:       make([]BranchInfo, len(p.branches)),
	}
	for i, b := range p.branches {
		n := p.arena.Node(b.node)
		info.Branches[i] = BranchInfo{
			Action:     n.Action,
			Entity:     n.Entity,
			ElapsedMs:  b.elapsedMs,
			DurationMs: b.durationMs,
		}
	}
	return info
}

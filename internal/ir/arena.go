package ir

import (
	"fmt"
	"math"
)

// Default limits for step trees. Both bound the work a single activation can
// do, so a hostile or mistaken definition cannot stall the tick loop.
const (
	DefaultMaxDepth = 64
	DefaultMaxSteps = 4096
)

// Limits bounds the shape of a step tree accepted by BuildArena.
// Zero fields fall back to the defaults.
type Limits struct {
	MaxDepth int // deepest allowed onArrive nesting (roots are depth 1)
	MaxSteps int // total nodes across the whole tree
}

// DefaultLimits returns the default tree limits.
func DefaultLimits() Limits {
	return Limits{MaxDepth: DefaultMaxDepth, MaxSteps: DefaultMaxSteps}
}

func (l Limits) withDefaults() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxSteps <= 0 {
		l.MaxSteps = DefaultMaxSteps
	}
	return l
}

// TreeErrorKind classifies why a step tree was rejected.
type TreeErrorKind string

const (
	TreeCyclic          TreeErrorKind = "cyclic"
	TreeTooDeep         TreeErrorKind = "too_deep"
	TreeTooLarge        TreeErrorKind = "too_large"
	TreeInvalidDuration TreeErrorKind = "invalid_duration"
)

// TreeError reports the first problem BuildArena found.
type TreeError struct {
	Kind  TreeErrorKind
	Path  string // e.g. "steps[0].onArrive[1]"
	Depth int
	Limit int
}

func (e *TreeError) Error() string {
	switch e.Kind {
	case TreeCyclic:
		return fmt.Sprintf("step tree is cyclic at %s", e.Path)
	case TreeTooDeep:
		return fmt.Sprintf("step tree exceeds max depth %d at %s", e.Limit, e.Path)
	case TreeTooLarge:
		return fmt.Sprintf("step tree exceeds max steps %d at %s", e.Limit, e.Path)
	case TreeInvalidDuration:
		return fmt.Sprintf("invalid duration at %s: must be a finite number >= 0", e.Path)
	}
	return fmt.Sprintf("invalid step tree at %s", e.Path)
}

// Node is one validated step. Children index into the owning Arena.
type Node struct {
	Action   string
	Entity   string
	Params   map[string]Param
	Duration float64
	Animated bool
	Easing   string
	Children []int
	Depth    int
	Path     string
}

// Arena is a step tree flattened into an index-addressed slice. Nodes are
// stored in pre-order; Roots lists the top-level steps in declaration order.
type Arena struct {
	Nodes []Node
	Roots []int
}

// Len returns the number of nodes.
func (a *Arena) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Nodes)
}

// Node returns the node at index i.
func (a *Arena) Node(i int) *Node {
	return &a.Nodes[i]
}

type arenaFrame struct {
	list   []Step
	next   int
	parent int
	depth  int
	owner  *Step
	path   string
}

// BuildArena validates steps and flattens them into an Arena.
//
// The walk is iterative so that depth is bounded by limits rather than the
// goroutine stack. A step that reappears among its own descendants is a
// cycle; the same subtree reached along two unrelated paths is copied.
func BuildArena(steps []Step, limits Limits) (*Arena, error) {
	limits = limits.withDefaults()
	arena := &Arena{}
	onPath := make(map[*Step]bool)
	stack := []arenaFrame{{list: steps, parent: -1, depth: 1, path: "steps"}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.list) {
			if top.owner != nil {
				delete(onPath, top.owner)
			}
			stack = stack[:len(stack)-1]
			continue
		}

		i := top.next
		top.next++
		s := &top.list[i]
		path := fmt.Sprintf("%s[%d]", top.path, i)
		depth, parent := top.depth, top.parent

		if onPath[s] {
			return nil, &TreeError{Kind: TreeCyclic, Path: path, Depth: depth}
		}
		if depth > limits.MaxDepth {
			return nil, &TreeError{Kind: TreeTooDeep, Path: path, Depth: depth, Limit: limits.MaxDepth}
		}
		if len(arena.Nodes) >= limits.MaxSteps {
			return nil, &TreeError{Kind: TreeTooLarge, Path: path, Depth: depth, Limit: limits.MaxSteps}
		}

		node := Node{
			Action: s.Action,
			Entity: s.Entity,
			Params: s.Params,
			Easing: s.Easing,
			Depth:  depth,
			Path:   path,
		}
		if s.Duration != nil {
			d := *s.Duration
			if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
				return nil, &TreeError{Kind: TreeInvalidDuration, Path: path, Depth: depth}
			}
			node.Duration = d
			node.Animated = true
		}

		idx := len(arena.Nodes)
		arena.Nodes = append(arena.Nodes, node)
		if parent < 0 {
			arena.Roots = append(arena.Roots, idx)
		} else {
			arena.Nodes[parent].Children = append(arena.Nodes[parent].Children, idx)
		}

		if len(s.OnArrive) > 0 {
			onPath[s] = true
			stack = append(stack, arenaFrame{
				list:   s.OnArrive,
				parent: idx,
				depth:  depth + 1,
				owner:  s,
				path:   path + ".onArrive",
			})
		}
	}
	return arena, nil
}

package ir

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArenaPreOrder(t *testing.T) {
	steps := []Step{
		Animated("move", "peon", nil, 800, "easeInOut",
			Instant("spawn", "pigeon", nil),
			Animated("fly", "pigeon", nil, 1200, "arc",
				Instant("destroy", "pigeon", nil))),
		Instant("log", "console", nil),
	}

	arena, err := BuildArena(steps, DefaultLimits())
	require.NoError(t, err)

	var actions []string
	for _, n := range arena.Nodes {
		actions = append(actions, n.Action)
	}
	assert.Equal(t, []string{"move", "spawn", "fly", "destroy", "log"}, actions)
	assert.Equal(t, []int{0, 4}, arena.Roots)
	assert.Equal(t, []int{1, 2}, arena.Node(0).Children)
	assert.Equal(t, []int{3}, arena.Node(2).Children)
	assert.Equal(t, "steps[0].onArrive[1].onArrive[0]", arena.Node(3).Path)
	assert.Equal(t, 3, arena.Node(3).Depth)
	assert.True(t, arena.Node(0).Animated)
	assert.False(t, arena.Node(1).Animated)
}

func TestBuildArenaEmpty(t *testing.T) {
	arena, err := BuildArena(nil, Limits{})
	require.NoError(t, err)
	assert.Equal(t, 0, arena.Len())
	assert.Empty(t, arena.Roots)
}

func TestBuildArenaRejectsCycle(t *testing.T) {
	steps := make([]Step, 1)
	steps[0] = Instant("loop", "e", nil)
	steps[0].OnArrive = steps

	_, err := BuildArena(steps, DefaultLimits())
	var te *TreeError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, TreeCyclic, te.Kind)
	assert.Equal(t, "steps[0].onArrive[0]", te.Path)
}

func TestBuildArenaCopiesSharedSubtree(t *testing.T) {
	shared := []Step{Instant("flash", "e", nil)}
	steps := []Step{
		{Action: "a", OnArrive: shared},
		{Action: "b", OnArrive: shared},
	}

	arena, err := BuildArena(steps, DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, 4, arena.Len())
}

func TestBuildArenaDepthLimit(t *testing.T) {
	leaf := Instant("leaf", "e", nil)
	tree := leaf
	for i := 0; i < 5; i++ {
		tree = Instant("n", "e", nil, tree)
	}

	_, err := BuildArena([]Step{tree}, Limits{MaxDepth: 6})
	require.NoError(t, err)

	_, err = BuildArena([]Step{tree}, Limits{MaxDepth: 5})
	var te *TreeError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, TreeTooDeep, te.Kind)
	assert.Equal(t, 5, te.Limit)
}

func TestBuildArenaStepLimit(t *testing.T) {
	steps := make([]Step, 10)
	for i := range steps {
		steps[i] = Instant("s", "e", nil)
	}

	_, err := BuildArena(steps, Limits{MaxSteps: 9})
	var te *TreeError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, TreeTooLarge, te.Kind)
	assert.Equal(t, "steps[9]", te.Path)
}

func TestBuildArenaRejectsBadDuration(t *testing.T) {
	for _, d := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := BuildArena([]Step{Animated("m", "e", nil, d, "")}, DefaultLimits())
		var te *TreeError
		require.True(t, errors.As(err, &te), "duration %v", d)
		assert.Equal(t, TreeInvalidDuration, te.Kind)
	}

	arena, err := BuildArena([]Step{Animated("m", "e", nil, 0, "")}, DefaultLimits())
	require.NoError(t, err)
	assert.True(t, arena.Node(0).Animated)
}

func TestBuildArenaDeepChainIsIterative(t *testing.T) {
	tree := Instant("leaf", "e", nil)
	for i := 0; i < 3000; i++ {
		tree = Instant("n", "e", nil, tree)
	}

	arena, err := BuildArena([]Step{tree}, Limits{MaxDepth: 5000, MaxSteps: 5000})
	require.NoError(t, err)
	assert.Equal(t, 3001, arena.Len())
}

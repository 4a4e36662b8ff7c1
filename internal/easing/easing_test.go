package easing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinearIsIdentity(t *testing.T) {
	for _, x := range []float64{0, 0.1, 0.25, 0.5, 0.9, 1} {
		assert.Equal(t, x, Linear(x))
	}
}

func TestEndpoints(t *testing.T) {
	for _, name := range []string{NameLinear, NameEaseIn, NameEaseOut, NameEaseInOut} {
		f, _ := Lookup(name)
		assert.InDelta(t, 0, f(0), 1e-12, name)
		assert.InDelta(t, 1, f(1), 1e-12, name)
	}
}

func TestEaseInOutMidpoint(t *testing.T) {
	assert.InDelta(t, 0.5, EaseInOut(0.5), 1e-12)
	assert.Less(t, EaseInOut(0.25), 0.25)
	assert.Greater(t, EaseInOut(0.75), 0.75)
}

func TestEaseInOutMonotonic(t *testing.T) {
	prev := EaseInOut(0)
	for i := 1; i <= 100; i++ {
		cur := EaseInOut(float64(i) / 100)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestArc(t *testing.T) {
	assert.InDelta(t, 1.0, Arc(0.5), 0.1)
	assert.Equal(t, 0.0, Arc(0))
	assert.Equal(t, 0.0, Arc(1))
	assert.InDelta(t, 0.75, Arc(0.25), 1e-12)
}

func TestLookupFallback(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
	}{
		{"arc", NameArc},
		{"easeInOut", NameEaseInOut},
		{"", NameLinear},
		{"bounce", NameLinear},
		{"EASEINOUT", NameLinear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, got := Lookup(tt.name)
			assert.Equal(t, tt.wantName, got)
			assert.NotNil(t, f)
		})
	}
}

func TestTableRegister(t *testing.T) {
	tb := NewTable()
	tb.Register("step", func(x float64) float64 {
		if x < 1 {
			return 0
		}
		return 1
	})

	f, name := tb.Lookup("step")
	assert.Equal(t, "step", name)
	assert.Equal(t, 0.0, f(0.99))
	assert.True(t, tb.Known("step"))
	assert.False(t, Default().Known("step"))
	assert.Equal(t, []string{"arc", "easeIn", "easeInOut", "easeOut", "linear", "step"}, tb.Names())
}

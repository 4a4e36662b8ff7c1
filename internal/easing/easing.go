// Package easing maps normalized time to animation progress.
//
// Every Func is pure: f(t) depends only on t. Outputs are not clamped, so a
// curve such as Arc can describe a trajectory height rather than a blend
// factor. Callers clamp t to [0,1] before calling.
package easing

import "sort"

// Func maps normalized time t in [0,1] to a progress value.
type Func func(t float64) float64

// Names of the built-in curves.
const (
	NameLinear    = "linear"
	NameEaseIn    = "easeIn"
	NameEaseOut   = "easeOut"
	NameEaseInOut = "easeInOut"
	NameArc       = "arc"
)

// Linear returns t.
func Linear(t float64) float64 { return t }

// EaseIn is a cubic ease-in.
func EaseIn(t float64) float64 { return t * t * t }

// EaseOut is a cubic ease-out.
func EaseOut(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// EaseInOut is a cubic S-curve with f(0)=0, f(0.5)=0.5 and f(1)=1.
func EaseInOut(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

// Arc is the parabola 4t(1-t): 0 at both ends, peaking at 1.0 when t=0.5.
func Arc(t float64) float64 { return 4 * t * (1 - t) }

// Table resolves easing names. Unknown names fall back to linear.
type Table struct {
	funcs map[string]Func
}

// NewTable returns a table holding the built-in curves.
func NewTable() *Table {
	return &Table{funcs: map[string]Func{
		NameLinear:    Linear,
		NameEaseIn:    EaseIn,
		NameEaseOut:   EaseOut,
		NameEaseInOut: EaseInOut,
		NameArc:       Arc,
	}}
}

var defaultTable = NewTable()

// Default returns the shared table of built-in curves. It must not be
// modified; use NewTable and Register for custom curves.
func Default() *Table { return defaultTable }

// Register adds or replaces a named curve.
func (tb *Table) Register(name string, f Func) {
	tb.funcs[name] = f
}

// Lookup returns the curve for name together with the effective name.
// An empty or unknown name yields Linear and "linear".
func (tb *Table) Lookup(name string) (Func, string) {
	if f, ok := tb.funcs[name]; ok && f != nil {
		return f, name
	}
	return Linear, NameLinear
}

// Known reports whether name is registered.
func (tb *Table) Known(name string) bool {
	_, ok := tb.funcs[name]
	return ok
}

// Names returns the registered names in sorted order.
func (tb *Table) Names() []string {
	names := make([]string, 0, len(tb.funcs))
	for n := range tb.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves name against the default table.
func Lookup(name string) (Func, string) {
	return defaultTable.Lookup(name)
}

package ir

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Signal is a typed event with a payload. The correlation identifier travels
// alongside the signal (see engine.Choreographer.HandleSignal), not inside it.
type Signal struct {
	Type    string `json:"type" yaml:"type"`
	Payload Object `json:"payload" yaml:"payload"`
}

// SignalPrefix marks a parameter value as a reference into the originating
// signal's payload: "signal.<field>".
const SignalPrefix = "signal."

// Param is a sealed step parameter: either a Literal or a SignalRef.
type Param interface {
	param()
	// Authored returns the value as it was written in the definition.
	Authored() Value
}

// Literal is a parameter passed through unchanged.
type Literal struct {
	Value Value
}

func (Literal) param() {}

// Authored returns the literal value.
func (l Literal) Authored() Value {
	if l.Value == nil {
		return Null{}
	}
	return l.Value
}

// SignalRef refers to a field of the originating signal's payload.
// Field may be a dotted path ("task.owner") for nested payloads.
type SignalRef struct {
	Field string
}

func (SignalRef) param() {}

// Authored returns the reference in its "signal.<field>" form.
func (r SignalRef) Authored() Value {
	return String(SignalPrefix + r.Field)
}

// ParseParam classifies an authored value. Strings of the form
// "signal.<field>" become SignalRefs; everything else is a Literal.
func ParseParam(v Value) Param {
	if s, ok := v.(String); ok {
		str := string(s)
		if strings.HasPrefix(str, SignalPrefix) && len(str) > len(SignalPrefix) {
			return SignalRef{Field: str[len(SignalPrefix):]}
		}
	}
	return Literal{Value: v}
}

// ParseParams classifies every entry of an authored parameter object.
func ParseParams(obj Object) map[string]Param {
	if len(obj) == 0 {
		return nil
	}
	params := make(map[string]Param, len(obj))
	for k, v := range obj {
		params[k] = ParseParam(v)
	}
	return params
}

// Predicate decides whether a choreography accepts a signal payload.
type Predicate interface {
	Match(payload Object) bool
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc func(payload Object) bool

// Match calls f(payload).
func (f PredicateFunc) Match(payload Object) bool {
	return f(payload)
}

// FieldEquals is the declarative predicate produced by definition documents:
// every listed field must be present in the payload and equal the expected
// value. Dotted names resolve nested fields.
type FieldEquals map[string]Value

// Match reports whether every field matches.
func (fe FieldEquals) Match(payload Object) bool {
	for field, want := range fe {
		got, ok := Lookup(payload, field)
		if !ok || !Equal(got, want) {
			return false
		}
	}
	return true
}

// Lookup finds field in payload. An exact top-level key wins; otherwise a
// dotted name is resolved segment by segment over the canonical payload.
// Segments are matched literally: wildcards, modifiers and queries are not
// interpreted. Numeric segments index arrays.
func Lookup(payload Object, field string) (Value, bool) {
	if v, ok := payload[field]; ok {
		return v, true
	}
	if !strings.Contains(field, ".") || len(payload) == 0 {
		return nil, false
	}
	data, err := MarshalCanonical(payload)
	if err != nil {
		return nil, false
	}
	res := gjson.GetBytes(data, literalPath(field))
	if !res.Exists() {
		return nil, false
	}
	v, err := fromGJSON(res)
	if err != nil {
		return nil, false
	}
	return v, true
}

// literalPath escapes every segment of a dotted name so gjson treats its
// characters as plain key text.
func literalPath(field string) string {
	segs := strings.Split(field, ".")
	for i, seg := range segs {
		segs[i] = gjson.Escape(seg)
	}
	return strings.Join(segs, ".")
}

// fromGJSON converts a gjson result, keeping whole numbers as Int.
func fromGJSON(res gjson.Result) (Value, error) {
	if res.Type == gjson.Number {
		if f := res.Float(); f == float64(res.Int()) && !strings.ContainsAny(res.Raw, ".eE") {
			return Int(res.Int()), nil
		}
	}
	if res.IsObject() || res.IsArray() {
		return UnmarshalValue([]byte(res.Raw))
	}
	return FromAny(res.Value())
}

// Step is one node of a choreography's action tree. A nil Duration marks an
// instant step; a non-nil Duration (milliseconds) marks an animated step.
// OnArrive children start in parallel when this step completes.
type Step struct {
	Action   string           `json:"action"`
	Entity   string           `json:"entity"`
	Params   map[string]Param `json:"-"`
	Duration *float64         `json:"duration,omitempty"`
	Easing   string           `json:"easing,omitempty"`
	OnArrive []Step           `json:"onArrive,omitempty"`
}

// Animated reports whether the step progresses over ticks.
func (s Step) Animated() bool {
	return s.Duration != nil
}

// Instant builds an instant step.
func Instant(action, entity string, params map[string]Param, onArrive ...Step) Step {
	return Step{Action: action, Entity: entity, Params: params, OnArrive: onArrive}
}

// Animated builds an animated step lasting durationMs.
func Animated(action, entity string, params map[string]Param, durationMs float64, easing string, onArrive ...Step) Step {
	d := durationMs
	return Step{Action: action, Entity: entity, Params: params, Duration: &d, Easing: easing, OnArrive: onArrive}
}

// Choreography is a registered rule mapping a signal type (and optional
// predicate) to a tree of steps. Choreographies are never mutated after
// registration.
type Choreography struct {
	ID         string
	On         string
	When       Predicate
	Interrupts bool
	Steps      []Step
}

// Accepts reports whether the choreography reacts to sig.
func (c Choreography) Accepts(sig Signal) bool {
	if c.On != sig.Type {
		return false
	}
	return c.When == nil || c.When.Match(sig.Payload)
}

// Describe renders the choreography as an Object in its authored form. Used
// for hashing and for the compile command's output. Function predicates
// cannot be described and appear as the string "<func>".
func (c Choreography) Describe() Object {
	obj := Object{
		"id":         String(c.ID),
		"on":         String(c.On),
		"interrupts": Bool(c.Interrupts),
		"steps":      describeSteps(c.Steps),
	}
	switch w := c.When.(type) {
	case nil:
	case FieldEquals:
		when := make(Object, len(w))
		for k, v := range w {
			when[k] = v
		}
		obj["when"] = when
	default:
		obj["when"] = String(fmt.Sprintf("<%T>", w))
	}
	return obj
}

// describeSteps renders a step list. Callers must only describe trees that
// passed BuildArena, since a cyclic tree would not terminate.
func describeSteps(steps []Step) Array {
	out := make(Array, len(steps))
	for i, s := range steps {
		obj := Object{
			"action": String(s.Action),
			"entity": String(s.Entity),
		}
		if len(s.Params) > 0 {
			params := make(Object, len(s.Params))
			for k, p := range s.Params {
				params[k] = p.Authored()
			}
			obj["params"] = params
		}
		if s.Duration != nil {
			obj["duration"] = Float(*s.Duration)
		}
		if s.Easing != "" {
			obj["easing"] = String(s.Easing)
		}
		if len(s.OnArrive) > 0 {
			obj["onArrive"] = describeSteps(s.OnArrive)
		}
		out[i] = obj
	}
	return out
}

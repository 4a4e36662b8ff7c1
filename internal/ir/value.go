package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the payload and parameter data the runtime
// carries without interpreting. Only Null, String, Int, Float, Bool, Array and
// Object implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents an explicit null.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a string value.
type String string

func (String) value() {}

// Int is an integer value. Integers decoded from documents stay Int so that
// entity indices and counters round-trip exactly.
type Int int64

func (Int) value() {}

// Float is a floating point value (positions, scales, progress).
// NaN and infinities are rejected by FromAny.
type Float float64

func (Float) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Array is an ordered list of values.
type Array []Value

func (Array) value() {}

// Object maps string keys to values. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Clone returns a shallow copy of the object.
func (obj Object) Clone() Object {
	if obj == nil {
		return nil
	}
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}

// compareKeysRFC8785 orders keys by UTF-16 code units, which differs from Go's
// byte-wise string ordering for characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// FromAny converts decoded YAML, JSON or CUE data into a Value.
//
// Accepted inputs: nil, string, bool, all Go integer kinds, float32/float64,
// json.Number, []any, map[string]any and values that already implement Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case float32:
		return floatValue(float64(val))
	case float64:
		return floatValue(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return floatValue(f)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func floatValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v", f)
	}
	return Float(f), nil
}

// ObjectFromMap converts a decoded map into an Object.
func ObjectFromMap(m map[string]any) (Object, error) {
	if m == nil {
		return Object{}, nil
	}
	v, err := FromAny(m)
	if err != nil {
		return nil, err
	}
	return v.(Object), nil
}

// ToAny converts a Value back into plain Go data (the inverse of FromAny).
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether two values are structurally equal. Int and Float
// compare numerically, so 1 and 1.0 are equal.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil, Null:
		switch b.(type) {
		case nil, Null:
			return true
		}
		return false
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		switch bv := b.(type) {
		case Int:
			return av == bv
		case Float:
			return float64(av) == float64(bv)
		}
		return false
	case Float:
		switch bv := b.(type) {
		case Float:
			return av == bv
		case Int:
			return float64(av) == float64(bv)
		}
		return false
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, exists := bv[k]
			if !exists || !Equal(v, other) {
				return false
			}
		}
		return true
	}
	return false
}

// Package values defines the typed value model shared by the configuration
// snapshot and the evaluation engine. A Value is a tagged union over the
// primitive types a flag or property may hold; conversions are strict and
// never coerce between kinds.
package values

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrMismatchType is returned when a Value is requested as an incompatible type.
var ErrMismatchType = errors.New("value type mismatch")

// Kind is the declared wire type of a flag or property value.
type Kind string

const (
	KindBoolean Kind = "BOOLEAN"
	KindNumeric Kind = "NUMERIC"
	KindString  Kind = "STRING"
)

// ParseKind converts the wire `type` field into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBoolean, KindNumeric, KindString:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown value kind %q", s)
	}
}

type valueType uint8

const (
	typeBool valueType = iota
	typeInt64
	typeUInt64
	typeFloat64
	typeString
)

// Value is an immutable tagged union of the primitive types accepted by the
// engine: bool, int64, uint64, float64 and string.
type Value struct {
	t valueType
	b bool
	i int64
	u uint64
	f float64
	s string
}

func Bool(v bool) Value       { return Value{t: typeBool, b: v} }
func Int64(v int64) Value     { return Value{t: typeInt64, i: v} }
func UInt64(v uint64) Value   { return Value{t: typeUInt64, u: v} }
func Float64(v float64) Value { return Value{t: typeFloat64, f: v} }
func String(v string) Value   { return Value{t: typeString, s: v} }

// Kind reports which wire kind this value belongs to.
func (v Value) Kind() Kind {
	switch v.t {
	case typeBool:
		return KindBoolean
	case typeString:
		return KindString
	default:
		return KindNumeric
	}
}

// AsBool returns the boolean payload, or ErrMismatchType for any other kind.
func (v Value) AsBool() (bool, error) {
	if v.t != typeBool {
		return false, ErrMismatchType
	}
	return v.b, nil
}

// AsInt64 returns the value as int64. A uint64 converts when it fits;
// floats and non-numeric kinds do not convert.
func (v Value) AsInt64() (int64, error) {
	switch v.t {
	case typeInt64:
		return v.i, nil
	case typeUInt64:
		if v.u > math.MaxInt64 {
			return 0, ErrMismatchType
		}
		return int64(v.u), nil
	default:
		return 0, ErrMismatchType
	}
}

// AsUInt64 returns the value as uint64. A non-negative int64 converts;
// floats and non-numeric kinds do not.
func (v Value) AsUInt64() (uint64, error) {
	switch v.t {
	case typeUInt64:
		return v.u, nil
	case typeInt64:
		if v.i < 0 {
			return 0, ErrMismatchType
		}
		return uint64(v.i), nil
	default:
		return 0, ErrMismatchType
	}
}

// AsFloat64 returns the float payload, or ErrMismatchType for any other kind.
// Integers do not silently widen to float.
func (v Value) AsFloat64() (float64, error) {
	if v.t != typeFloat64 {
		return 0, ErrMismatchType
	}
	return v.f, nil
}

// AsString returns the string payload, or ErrMismatchType for any other kind.
func (v Value) AsString() (string, error) {
	if v.t != typeString {
		return "", ErrMismatchType
	}
	return v.s, nil
}

// Numeric returns the value widened to float64 for ordering comparisons.
// The second return is false for BOOLEAN and STRING values.
func (v Value) Numeric() (float64, bool) {
	switch v.t {
	case typeInt64:
		return float64(v.i), true
	case typeUInt64:
		return float64(v.u), true
	case typeFloat64:
		return v.f, true
	default:
		return 0, false
	}
}

// Equal reports strict equality: kinds must match, and NUMERIC values compare
// numerically across the integer/float representations.
func (v Value) Equal(o Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.t {
	case typeBool:
		return v.b == o.b
	case typeString:
		return v.s == o.s
	default:
		a, _ := v.Numeric()
		b, _ := o.Numeric()
		return a == b
	}
}

// Interface returns the underlying primitive as an untyped value, suitable
// for JSON encoding.
func (v Value) Interface() any {
	switch v.t {
	case typeBool:
		return v.b
	case typeInt64:
		return v.i
	case typeUInt64:
		return v.u
	case typeFloat64:
		return v.f
	default:
		return v.s
	}
}

// String renders the value for logs and CLI output.
func (v Value) String() string {
	switch v.t {
	case typeBool:
		return strconv.FormatBool(v.b)
	case typeInt64:
		return strconv.FormatInt(v.i, 10)
	case typeUInt64:
		return strconv.FormatUint(v.u, 10)
	case typeFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

// MarshalJSON encodes the underlying primitive.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// FromJSON converts a decoded JSON value into a Value of the declared kind.
// Numbers prefer int64, then uint64, then float64, mirroring how the
// configuration service serializes numeric values.
func FromJSON(kind Kind, raw any) (Value, error) {
	switch kind {
	case KindBoolean:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, fmt.Errorf("%w: %v is not a boolean", ErrMismatchType, raw)
		}
		return Bool(b), nil
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("%w: %v is not a string", ErrMismatchType, raw)
		}
		return String(s), nil
	case KindNumeric:
		return numericFromJSON(raw)
	default:
		return Value{}, fmt.Errorf("unknown value kind %q", kind)
	}
}

func numericFromJSON(raw any) (Value, error) {
	switch n := raw.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return Int64(i), nil
		}
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return UInt64(u), nil
		}
		if f, err := n.Float64(); err == nil {
			return Float64(f), nil
		}
	case int:
		return Int64(int64(n)), nil
	case int64:
		return Int64(n), nil
	case uint64:
		return UInt64(n), nil
	case float64:
		if n == math.Trunc(n) && n >= math.MinInt64 && n <= math.MaxInt64 {
			return Int64(int64(n)), nil
		}
		return Float64(n), nil
	}
	return Value{}, fmt.Errorf("%w: %v is not numeric", ErrMismatchType, raw)
}

// Infer converts an untyped attribute (for example, from a decoded JSON entity
// payload) into a Value. Unsupported types report ok=false.
func Infer(raw any) (Value, bool) {
	switch v := raw.(type) {
	case bool:
		return Bool(v), true
	case string:
		return String(v), true
	case int:
		return Int64(int64(v)), true
	case int64:
		return Int64(v), true
	case uint64:
		return UInt64(v), true
	case float64:
		val, err := numericFromJSON(v)
		return val, err == nil
	case json.Number:
		val, err := numericFromJSON(v)
		return val, err == nil
	case Value:
		return v, true
	default:
		return Value{}, false
	}
}

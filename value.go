package gobject

import (
	"fmt"
	"strconv"
)

// Kind identifies the native type of a [Value]. The set of kinds is
// closed: it mirrors the basic types of the native object system's
// value container, and values of any other shape are rejected with a
// [KindError] rather than passed through untyped.
type Kind byte

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindUint
	KindInt64
	KindUint64
	KindFloat64
	KindString
	KindObject
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindInt:     "int",
	KindUint:    "uint",
	KindInt64:   "int64",
	KindUint64:  "uint64",
	KindFloat64: "float64",
	KindString:  "string",
	KindObject:  "object",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

// A Value is a tagged value exchanged with the native library, e.g. a
// property value or a signal argument. The zero Value has
// [KindInvalid] and no payload.
type Value struct {
	kind Kind
	val  any
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// Interface returns the value's payload as its canonical Go type:
// bool, int32, uint32, int64, uint64, float64, string, or [Handle]
// according to the kind. The zero Value returns nil.
func (v Value) Interface() any { return v.val }

func (v Value) String() string {
	if v.kind == KindInvalid {
		return "<invalid>"
	}
	return fmt.Sprintf("%s(%v)", v.kind, v.val)
}

// convertFuncs maps each kind to the conversion routine that coerces
// an arbitrary Go value into that kind's canonical payload. This is
// the entire set of representable kinds; NewValue fails with a
// KindError for anything absent from this table.
var convertFuncs = map[Kind]func(any) (any, error){
	KindBool:    func(x any) (any, error) { return boolValue(x) },
	KindInt:     func(x any) (any, error) { v, err := intValue(x); return int32(v), err },
	KindUint:    func(x any) (any, error) { v, err := uintValue(x); return uint32(v), err },
	KindInt64:   func(x any) (any, error) { return intValue(x) },
	KindUint64:  func(x any) (any, error) { return uintValue(x) },
	KindFloat64: func(x any) (any, error) { return floatValue(x) },
	KindString:  func(x any) (any, error) { return stringValue(x) },
	KindObject:  func(x any) (any, error) { return handleValue(x) },
}

// kindOf maps Go types to the kind that naturally represents them.
// Only exact types appear here; ValueOf does not chase named types.
func kindOf(x any) Kind {
	switch x.(type) {
	case bool:
		return KindBool
	case int32:
		return KindInt
	case uint32:
		return KindUint
	case int, int8, int16, int64:
		return KindInt64
	case uint, uint8, uint16, uint64:
		return KindUint64
	case float32, float64:
		return KindFloat64
	case string:
		return KindString
	case Handle, *Object:
		return KindObject
	}
	return KindInvalid
}

// ValueOf converts x to the Value whose kind naturally represents
// x's Go type: bool to KindBool, int32 to KindInt, uint32 to
// KindUint, the remaining integer types to KindInt64 or KindUint64
// by signedness, floats to KindFloat64, string to KindString, and
// [Handle] or [*Object] to KindObject. Values of any other type fail
// with a [ConvertError].
func ValueOf(x any) (Value, error) {
	if v, ok := x.(Value); ok {
		return v, nil
	}
	k := kindOf(x)
	if k == KindInvalid {
		return Value{}, ConvertError{Kind: KindInvalid, Value: x}
	}
	return NewValue(k, x)
}

// NewValue converts x to a Value of kind k. Numeric kinds accept any
// Go integer or float type as well as numeric strings; KindBool
// additionally accepts "true"/"false" and treats nonzero numbers as
// true. A conversion failure is reported as a [ConvertError], an
// unrepresentable kind as a [KindError].
func NewValue(k Kind, x any) (Value, error) {
	if v, ok := x.(Value); ok {
		if v.kind == k {
			return v, nil
		}
		x = v.val
	}
	conv, ok := convertFuncs[k]
	if !ok {
		return Value{}, KindError{Kind: k}
	}
	val, err := conv(x)
	if err != nil {
		return Value{}, err
	}
	return Value{kind: k, val: val}, nil
}

// MustValue is NewValue, panicking on error. It is intended for
// static values whose conversion cannot fail.
func MustValue(k Kind, x any) Value {
	v, err := NewValue(k, x)
	if err != nil {
		panic(err)
	}
	return v
}

// BoolValue returns a KindBool Value.
func BoolValue(b bool) Value { return Value{kind: KindBool, val: b} }

// IntValue returns a KindInt Value.
func IntValue(n int32) Value { return Value{kind: KindInt, val: n} }

// UintValue returns a KindUint Value.
func UintValue(n uint32) Value { return Value{kind: KindUint, val: n} }

// Int64Value returns a KindInt64 Value.
func Int64Value(n int64) Value { return Value{kind: KindInt64, val: n} }

// Uint64Value returns a KindUint64 Value.
func Uint64Value(n uint64) Value { return Value{kind: KindUint64, val: n} }

// Float64Value returns a KindFloat64 Value.
func Float64Value(f float64) Value { return Value{kind: KindFloat64, val: f} }

// StringValue returns a KindString Value.
func StringValue(s string) Value { return Value{kind: KindString, val: s} }

// ObjectValue returns a KindObject Value wrapping h.
func ObjectValue(h Handle) Value { return Value{kind: KindObject, val: h} }

// Bool returns the value coerced to a bool.
func (v Value) Bool() (bool, error) { return boolValue(v.val) }

// Int64 returns the value coerced to an int64.
func (v Value) Int64() (int64, error) { return intValue(v.val) }

// Uint64 returns the value coerced to a uint64.
func (v Value) Uint64() (uint64, error) { return uintValue(v.val) }

// Float64 returns the value coerced to a float64.
func (v Value) Float64() (float64, error) { return floatValue(v.val) }

// Text returns the value coerced to a string.
func (v Value) Text() (string, error) { return stringValue(v.val) }

// Object returns the value's object handle. Unlike the numeric
// accessors it performs no coercion: only KindObject values carry a
// handle.
func (v Value) Object() (Handle, error) {
	if v.kind != KindObject {
		return NoHandle, ConvertError{Kind: KindObject, Value: v.val}
	}
	return v.val.(Handle), nil
}

func boolValue(x any) (bool, error) {
	switch t := x.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, ConvertError{Kind: KindBool, Value: x}
		}
		return b, nil
	}
	n, err := intValue(x)
	if err != nil {
		return false, ConvertError{Kind: KindBool, Value: x}
	}
	return n != 0, nil
}

func intValue(x any) (int64, error) {
	switch t := x.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case uint:
		return int64(t), nil
	case float32:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, ConvertError{Kind: KindInt64, Value: x}
		}
		return n, nil
	}
	return 0, ConvertError{Kind: KindInt64, Value: x}
}

func uintValue(x any) (uint64, error) {
	if s, ok := x.(string); ok {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, ConvertError{Kind: KindUint64, Value: x}
		}
		return n, nil
	}
	n, err := intValue(x)
	if err != nil {
		return 0, ConvertError{Kind: KindUint64, Value: x}
	}
	return uint64(n), nil
}

func floatValue(x any) (float64, error) {
	switch t := x.(type) {
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, ConvertError{Kind: KindFloat64, Value: x}
		}
		return f, nil
	}
	n, err := intValue(x)
	if err != nil {
		return 0, ConvertError{Kind: KindFloat64, Value: x}
	}
	return float64(n), nil
}

func stringValue(x any) (string, error) {
	switch t := x.(type) {
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(t), nil
	}
	return "", ConvertError{Kind: KindString, Value: x}
}

func handleValue(x any) (Handle, error) {
	switch t := x.(type) {
	case Handle:
		return t, nil
	case *Object:
		if t == nil {
			return NoHandle, ConvertError{Kind: KindObject, Value: x}
		}
		return t.Handle(), nil
	}
	return NoHandle, ConvertError{Kind: KindObject, Value: x}
}

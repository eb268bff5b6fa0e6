// Package value implements the dynamic value model shared by the
// expression compiler and the evaluation VM.
//
// A Value is a small tagged struct holding one of seven kinds: null,
// int, float, bool, string, array or object. Containers are exclusively
// owned: a Value never aliases another Value's array or object payload.
// Copy produces a fully independent deep copy, and container accessors
// return copies rather than references, so callers can mutate results
// freely without corrupting the source.
package value

import (
	"fmt"
	"strconv"
)

// Kind identifies which payload a Value carries.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindArray
	KindObject
)

// String returns the lowercase name used in diagnostics and typeof-style
// output.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Value is a tagged dynamic value. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	arr  *Array
	obj  *Object
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int64 returns an int value.
func Int64(v int64) Value { return Value{kind: KindInt, i: v} }

// Float64 returns a float value.
func Float64(v float64) Value { return Value{kind: KindFloat, f: v} }

// Boolean returns a bool value.
func Boolean(v bool) Value { return Value{kind: KindBool, b: v} }

// Str returns a string value.
func Str(v string) Value { return Value{kind: KindString, s: v} }

// ArrayOf wraps an array payload. The Value takes exclusive ownership
// of arr; callers must not retain or mutate it afterwards. A nil arr
// yields an empty array.
func ArrayOf(arr *Array) Value {
	if arr == nil {
		arr = NewArray()
	}
	return Value{kind: KindArray, arr: arr}
}

// ObjectOf wraps an object payload. The Value takes exclusive ownership
// of obj; callers must not retain or mutate it afterwards. A nil obj
// yields an empty object.
func ObjectOf(obj *Object) Value {
	if obj == nil {
		obj = NewObject()
	}
	return Value{kind: KindObject, obj: obj}
}

// Kind reports the payload kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the int payload, or 0 if v is not an int.
func (v Value) AsInt() int64 {
	if v.kind != KindInt {
		return 0
	}
	return v.i
}

// AsFloat returns the float payload. Ints are widened; any other kind
// yields 0.
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInt:
		return float64(v.i)
	}
	return 0
}

// AsBool returns the bool payload, or false if v is not a bool.
func (v Value) AsBool() bool {
	if v.kind != KindBool {
		return false
	}
	return v.b
}

// AsString returns the string payload, or "" if v is not a string.
func (v Value) AsString() string {
	if v.kind != KindString {
		return ""
	}
	return v.s
}

// AsArray returns the array payload, or nil if v is not an array. The
// returned pointer is the Value's owned payload; mutating it mutates v.
func (v Value) AsArray() *Array {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// AsObject returns the object payload, or nil if v is not an object.
// The returned pointer is the Value's owned payload; mutating it
// mutates v.
func (v Value) AsObject() *Object {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// IsNumeric reports whether v is an int or a float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Copy returns a deep copy of v. Scalar kinds copy by value; arrays and
// objects are cloned recursively so the result shares no storage with v.
func (v Value) Copy() Value {
	switch v.kind {
	case KindArray:
		return Value{kind: KindArray, arr: v.arr.Clone()}
	case KindObject:
		return Value{kind: KindObject, obj: v.obj.Clone()}
	}
	return v
}

// Truthy reports the boolean interpretation of v: null is false, bool
// is its payload, numbers are true when nonzero, strings when nonempty,
// and containers when they hold at least one element.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindBool:
		return v.b
	case KindString:
		return v.s != ""
	case KindArray:
		return v.arr.Len() > 0
	case KindObject:
		return v.obj.Len() > 0
	}
	return false
}

// Equal reports deep structural equality. Values of different kinds are
// never equal; arrays compare element-wise and objects entry-wise.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindBool:
		return v.b == other.b
	case KindString:
		return v.s == other.s
	case KindArray:
		return v.arr.equal(other.arr)
	case KindObject:
		return v.obj.equal(other.obj)
	}
	return false
}

// String renders v for display. Strings render without quotes;
// containers render as a summary rather than their full contents.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	case KindArray:
		return fmt.Sprintf("[array with %d items]", v.arr.Len())
	case KindObject:
		return fmt.Sprintf("[object with %d entries]", v.obj.Len())
	}
	return "unknown"
}

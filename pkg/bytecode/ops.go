package bytecode

import (
	"math"
	"strings"

	"github.com/reflexlang/reflex/pkg/value"
)

// Operator semantics live here so the constant folder and the VM
// cannot drift apart: folding a subtree at compile time must produce
// exactly what evaluating it would have.
//
// The policy is permissive throughout. Int and float mix freely with
// promotion to float; adding anything to a string stringifies and
// concatenates; every other type mismatch, and division or modulo by
// zero, yields null rather than an error.

func evalBinary(op Opcode, left, right value.Value) value.Value {
	switch op {
	case OpAdd:
		return opAdd(left, right)
	case OpSub:
		return opArith(left, right, func(a, b int64) int64 { return a - b },
			func(a, b float64) float64 { return a - b })
	case OpMul:
		return opArith(left, right, func(a, b int64) int64 { return a * b },
			func(a, b float64) float64 { return a * b })
	case OpDiv:
		return opDiv(left, right)
	case OpMod:
		return opMod(left, right)
	case OpEq:
		return value.Boolean(left.Equal(right))
	case OpNeq:
		return value.Boolean(!left.Equal(right))
	case OpLt:
		return opCompare(left, right, func(c int) bool { return c < 0 })
	case OpLte:
		return opCompare(left, right, func(c int) bool { return c <= 0 })
	case OpGt:
		return opCompare(left, right, func(c int) bool { return c > 0 })
	case OpGte:
		return opCompare(left, right, func(c int) bool { return c >= 0 })
	case OpAnd:
		return value.Boolean(left.Truthy() && right.Truthy())
	case OpOr:
		return value.Boolean(left.Truthy() || right.Truthy())
	}
	return value.Null()
}

func evalUnary(op Opcode, operand value.Value) value.Value {
	switch op {
	case OpNot:
		return value.Boolean(!operand.Truthy())
	case OpNegate:
		switch operand.Kind() {
		case value.KindInt:
			return value.Int64(-operand.AsInt())
		case value.KindFloat:
			return value.Float64(-operand.AsFloat())
		}
	}
	return value.Null()
}

func opAdd(left, right value.Value) value.Value {
	if left.Kind() == value.KindString || right.Kind() == value.KindString {
		return value.Str(left.String() + right.String())
	}
	return opArith(left, right, func(a, b int64) int64 { return a + b },
		func(a, b float64) float64 { return a + b })
}

func opArith(left, right value.Value, ints func(a, b int64) int64, floats func(a, b float64) float64) value.Value {
	if !left.IsNumeric() || !right.IsNumeric() {
		return value.Null()
	}
	if left.Kind() == value.KindInt && right.Kind() == value.KindInt {
		return value.Int64(ints(left.AsInt(), right.AsInt()))
	}
	return value.Float64(floats(left.AsFloat(), right.AsFloat()))
}

func opDiv(left, right value.Value) value.Value {
	if !left.IsNumeric() || !right.IsNumeric() {
		return value.Null()
	}
	if left.Kind() == value.KindInt && right.Kind() == value.KindInt {
		if right.AsInt() == 0 {
			return value.Null()
		}
		return value.Int64(left.AsInt() / right.AsInt())
	}
	if right.AsFloat() == 0 {
		return value.Null()
	}
	return value.Float64(left.AsFloat() / right.AsFloat())
}

func opMod(left, right value.Value) value.Value {
	if !left.IsNumeric() || !right.IsNumeric() {
		return value.Null()
	}
	if left.Kind() == value.KindInt && right.Kind() == value.KindInt {
		if right.AsInt() == 0 {
			return value.Null()
		}
		return value.Int64(left.AsInt() % right.AsInt())
	}
	if right.AsFloat() == 0 {
		return value.Null()
	}
	return value.Float64(math.Mod(left.AsFloat(), right.AsFloat()))
}

// opCompare orders two numbers or two strings. Anything else is a
// mismatch and yields null.
func opCompare(left, right value.Value, test func(c int) bool) value.Value {
	if left.IsNumeric() && right.IsNumeric() {
		a, b := left.AsFloat(), right.AsFloat()
		switch {
		case a < b:
			return value.Boolean(test(-1))
		case a > b:
			return value.Boolean(test(1))
		default:
			return value.Boolean(test(0))
		}
	}
	if left.Kind() == value.KindString && right.Kind() == value.KindString {
		return value.Boolean(test(strings.Compare(left.AsString(), right.AsString())))
	}
	return value.Null()
}

// getProperty implements static property access. Objects look up the
// key; arrays and strings expose a synthetic length; null propagates.
func getProperty(receiver value.Value, name string) value.Value {
	switch receiver.Kind() {
	case value.KindObject:
		return receiver.AsObject().Get(name)
	case value.KindArray:
		if name == "length" {
			return value.Int64(int64(receiver.AsArray().Len()))
		}
	case value.KindString:
		if name == "length" {
			return value.Int64(int64(len(receiver.AsString())))
		}
	}
	return value.Null()
}

// getElement implements computed-member and index access. Array and
// string indices are bounds-checked and degrade to null out of range.
// String indexing addresses raw bytes, not code points.
func getElement(receiver, key value.Value) value.Value {
	switch receiver.Kind() {
	case value.KindArray:
		if key.Kind() == value.KindInt {
			return receiver.AsArray().At(int(key.AsInt()))
		}
		if key.Kind() == value.KindString {
			return getProperty(receiver, key.AsString())
		}
	case value.KindString:
		if key.Kind() == value.KindInt {
			s, i := receiver.AsString(), key.AsInt()
			if i < 0 || i >= int64(len(s)) {
				return value.Null()
			}
			return value.Str(s[i : i+1])
		}
		if key.Kind() == value.KindString {
			return getProperty(receiver, key.AsString())
		}
	case value.KindObject:
		if key.Kind() == value.KindString {
			return receiver.AsObject().Get(key.AsString())
		}
	}
	return value.Null()
}

// callMethod dispatches a method by the receiver's runtime type.
// Arguments arrive in declaration order. Mutating methods operate on
// the popped receiver value, which under exclusive ownership is a
// private copy.
func callMethod(receiver value.Value, method string, args []value.Value) value.Value {
	switch receiver.Kind() {
	case value.KindArray:
		return callArrayMethod(receiver.AsArray(), method, args)
	case value.KindString:
		return callStringMethod(receiver.AsString(), method, args)
	}
	return value.Null()
}

func callArrayMethod(arr *value.Array, method string, args []value.Value) value.Value {
	switch method {
	case "push":
		if len(args) < 1 {
			return value.Null()
		}
		arr.Push(args[0])
		return value.Int64(int64(arr.Len()))
	case "pop":
		return arr.Pop()
	case "length":
		return value.Int64(int64(arr.Len()))
	case "reverse":
		arr.Reverse()
		return value.ArrayOf(arr)
	}
	return value.Null()
}

func callStringMethod(s string, method string, args []value.Value) value.Value {
	switch method {
	case "length":
		return value.Int64(int64(len(s)))
	case "toUpperCase":
		return value.Str(strings.ToUpper(s))
	case "toLowerCase":
		return value.Str(strings.ToLower(s))
	case "trim":
		return value.Str(strings.Trim(s, " \t\n\r"))
	case "substring":
		if len(args) < 1 {
			return value.Null()
		}
		start, end := int64(0), int64(len(s))
		if args[0].Kind() == value.KindInt {
			start = args[0].AsInt()
		}
		if len(args) >= 2 && args[1].Kind() == value.KindInt {
			end = args[1].AsInt()
		}
		start = clamp(start, 0, int64(len(s)))
		end = clamp(end, 0, int64(len(s)))
		if end < start {
			end = start
		}
		return value.Str(s[start:end])
	}
	return value.Null()
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

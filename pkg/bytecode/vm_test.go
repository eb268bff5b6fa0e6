package bytecode

import (
	"math"
	"testing"

	"github.com/reflexlang/reflex/pkg/ast"
	"github.com/reflexlang/reflex/pkg/value"
)

// mapResolver serves external state lookups from a plain map.
type mapResolver map[string]value.Value

func (m mapResolver) Resolve(name string) (value.Value, bool) {
	v, ok := m[name]
	return v, ok
}

// recordingRegistry is a builtin registry that records every dispatch.
type recordingRegistry struct {
	fns    map[string]func(args []value.Value) value.Value
	called []string
	args   [][]value.Value
}

func (r *recordingRegistry) Call(name string, args []value.Value) (value.Value, bool) {
	r.called = append(r.called, name)
	r.args = append(r.args, args)
	fn, ok := r.fns[name]
	if !ok {
		return value.Null(), false
	}
	return fn(args), true
}

func compileExpr(t *testing.T, expr ast.Expr) *Unit {
	t.Helper()
	unit, err := NewCompiler().Compile(expr)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return unit
}

func eval(t *testing.T, expr ast.Expr, ctx *Context) value.Value {
	t.Helper()
	if ctx == nil {
		ctx = NewContext(nil, nil)
	}
	return Eval(compileExpr(t, expr), ctx)
}

func TestLiteralRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expr
		want value.Value
	}{
		{"small int", &ast.IntLit{Value: 42}, value.Int64(42)},
		{"negative int", &ast.IntLit{Value: -7}, value.Int64(-7)},
		{"large int", &ast.IntLit{Value: 1 << 40}, value.Int64(1 << 40)},
		{"float", &ast.FloatLit{Value: 3.25}, value.Float64(3.25)},
		{"string", &ast.StringLit{Value: "hello"}, value.Str("hello")},
		{"empty string", &ast.StringLit{Value: ""}, value.Str("")},
		{"true", &ast.BoolLit{Value: true}, value.Boolean(true)},
		{"false", &ast.BoolLit{Value: false}, value.Boolean(false)},
		{"null", &ast.NullLit{}, value.Null()},
	}

	for _, tt := range tests {
		got := eval(t, tt.expr, nil)
		if !got.Equal(tt.want) {
			t.Errorf("%s: got %v (%s), want %v", tt.name, got, got.Kind(), tt.want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	bin := func(op ast.BinaryOp, l, r ast.Expr) ast.Expr {
		return &ast.Binary{Op: op, Left: l, Right: r}
	}
	i := func(v int64) ast.Expr { return &ast.IntLit{Value: v} }
	f := func(v float64) ast.Expr { return &ast.FloatLit{Value: v} }

	tests := []struct {
		name string
		expr ast.Expr
		want value.Value
	}{
		{"precedence tree", bin(ast.OpAdd, i(1), bin(ast.OpMul, i(2), i(3))), value.Int64(7)},
		{"int div", bin(ast.OpDiv, i(7), i(2)), value.Int64(3)},
		{"mixed add promotes", bin(ast.OpAdd, i(1), f(0.5)), value.Float64(1.5)},
		{"mixed mul promotes", bin(ast.OpMul, i(2), f(1.5)), value.Float64(3)},
		{"mod", bin(ast.OpMod, i(7), i(3)), value.Int64(1)},
		{"int div by zero", bin(ast.OpDiv, i(1), i(0)), value.Null()},
		{"float div by zero", bin(ast.OpDiv, f(1), f(0)), value.Null()},
		{"int mod by zero", bin(ast.OpMod, i(1), i(0)), value.Null()},
		{"float mod by zero", bin(ast.OpMod, f(1), f(0)), value.Null()},
		{"sub on string", bin(ast.OpSub, &ast.StringLit{Value: "a"}, i(1)), value.Null()},
		{"negate int", &ast.Unary{Op: ast.OpNeg, Operand: i(5)}, value.Int64(-5)},
		{"negate string", &ast.Unary{Op: ast.OpNeg, Operand: &ast.StringLit{Value: "x"}}, value.Null()},
		{"not", &ast.Unary{Op: ast.OpNot, Operand: i(0)}, value.Boolean(true)},
	}

	for _, tt := range tests {
		got := eval(t, tt.expr, nil)
		if !got.Equal(tt.want) {
			t.Errorf("%s: got %v (%s), want %v (%s)", tt.name, got, got.Kind(), tt.want, tt.want.Kind())
		}
	}
}

func TestStringConcat(t *testing.T) {
	got := eval(t, &ast.Binary{
		Op:    ast.OpAdd,
		Left:  &ast.StringLit{Value: "a"},
		Right: &ast.StringLit{Value: "b"},
	}, nil)
	if got.AsString() != "ab" {
		t.Errorf(`"a" + "b" = %v, want "ab"`, got)
	}

	// Any string operand stringifies the other side.
	got = eval(t, &ast.Binary{
		Op:    ast.OpAdd,
		Left:  &ast.StringLit{Value: "n="},
		Right: &ast.IntLit{Value: 5},
	}, nil)
	if got.AsString() != "n=5" {
		t.Errorf(`"n=" + 5 = %v, want "n=5"`, got)
	}
}

func TestComparisons(t *testing.T) {
	bin := func(op ast.BinaryOp, l, r ast.Expr) ast.Expr {
		return &ast.Binary{Op: op, Left: l, Right: r}
	}
	i := func(v int64) ast.Expr { return &ast.IntLit{Value: v} }
	s := func(v string) ast.Expr { return &ast.StringLit{Value: v} }

	tests := []struct {
		name string
		expr ast.Expr
		want value.Value
	}{
		{"lt", bin(ast.OpLt, i(1), i(2)), value.Boolean(true)},
		{"gte", bin(ast.OpGte, i(2), i(2)), value.Boolean(true)},
		{"mixed numeric lt", bin(ast.OpLt, i(1), &ast.FloatLit{Value: 1.5}), value.Boolean(true)},
		{"string lt", bin(ast.OpLt, s("apple"), s("banana")), value.Boolean(true)},
		{"mismatched lt", bin(ast.OpLt, i(1), s("two")), value.Null()},
		{"eq", bin(ast.OpEq, i(3), i(3)), value.Boolean(true)},
		{"neq", bin(ast.OpNeq, i(3), i(4)), value.Boolean(true)},
		{"eq strict kinds", bin(ast.OpEq, i(1), &ast.FloatLit{Value: 1}), value.Boolean(false)},
		{"and", bin(ast.OpAnd, i(1), s("")), value.Boolean(false)},
		{"or", bin(ast.OpOr, i(0), s("x")), value.Boolean(true)},
	}

	for _, tt := range tests {
		got := eval(t, tt.expr, nil)
		if !got.Equal(tt.want) {
			t.Errorf("%s: got %v (%s), want %v", tt.name, got, got.Kind(), tt.want)
		}
	}
}

func TestTernaryBranchSelection(t *testing.T) {
	ternary := func() ast.Expr {
		return &ast.Ternary{
			Cond: &ast.VarRef{Name: "flag"},
			Then: &ast.Call{Func: "math_one", Args: nil},
			Else: &ast.Call{Func: "math_two", Args: nil},
		}
	}

	for _, cond := range []bool{true, false} {
		reg := &recordingRegistry{fns: map[string]func([]value.Value) value.Value{
			"math_one": func([]value.Value) value.Value { return value.Int64(1) },
			"math_two": func([]value.Value) value.Value { return value.Int64(2) },
		}}
		ctx := NewContext(mapResolver{"flag": value.Boolean(cond)}, reg)
		got := eval(t, ternary(), ctx)

		want, wantCall := value.Int64(1), "math_one"
		if !cond {
			want, wantCall = value.Int64(2), "math_two"
		}
		if !got.Equal(want) {
			t.Errorf("cond=%t: got %v, want %v", cond, got, want)
		}
		// Only the taken branch's builtin is dispatched.
		if len(reg.called) != 1 || reg.called[0] != wantCall {
			t.Errorf("cond=%t: dispatched %v, want [%s]", cond, reg.called, wantCall)
		}
	}
}

func TestVariableResolution(t *testing.T) {
	resolver := mapResolver{
		"count":         value.Int64(10),
		"Counter:count": value.Int64(99),
	}

	// Locals win over the resolver.
	ctx := NewContext(resolver, nil)
	ctx.Bind("count", value.Int64(5))
	got := eval(t, &ast.VarRef{Name: "count"}, ctx)
	if got.AsInt() != 5 {
		t.Errorf("local binding: got %v, want 5", got)
	}

	// Scoped names bypass locals entirely.
	ctx = NewContext(resolver, nil)
	ctx.Bind("Counter:count", value.Int64(5))
	got = eval(t, &ast.VarRef{Name: "count", Scope: "Counter"}, ctx)
	if got.AsInt() != 99 {
		t.Errorf("scoped lookup: got %v, want 99", got)
	}

	// Unbound names are null, not an error.
	got = eval(t, &ast.VarRef{Name: "missing"}, NewContext(resolver, nil))
	if !got.IsNull() {
		t.Errorf("unbound name: got %v, want null", got)
	}
}

func TestPropertyAccess(t *testing.T) {
	user := value.NewObject()
	user.Set("name", value.Str("Ann"))
	resolver := mapResolver{
		"user":    value.ObjectOf(user),
		"nothing": value.Null(),
	}

	got := eval(t, &ast.Property{Object: "user", Field: "name"}, NewContext(resolver, nil))
	if got.AsString() != "Ann" {
		t.Errorf("user.name = %v, want Ann", got)
	}

	// Null receiver propagates without fault.
	ctx := NewContext(resolver, nil)
	got = eval(t, &ast.Property{Object: "nothing", Field: "name"}, ctx)
	if !got.IsNull() || ctx.Failed() {
		t.Errorf("null receiver: got %v failed=%t, want null without fault", got, ctx.Failed())
	}

	// Missing key is null.
	got = eval(t, &ast.Property{Object: "user", Field: "age"}, NewContext(resolver, nil))
	if !got.IsNull() {
		t.Errorf("missing key: got %v, want null", got)
	}

	// Member access chains through arbitrary receivers.
	got = eval(t, &ast.Member{Object: &ast.VarRef{Name: "user"}, Field: "name"}, NewContext(resolver, nil))
	if got.AsString() != "Ann" {
		t.Errorf("member chain: got %v, want Ann", got)
	}
}

func TestIndexing(t *testing.T) {
	items := value.NewArray()
	items.Push(value.Str("first"))
	items.Push(value.Str("second"))
	resolver := mapResolver{
		"items": value.ArrayOf(items),
		"word":  value.Str("hello"),
	}

	index := func(name string, at int64) ast.Expr {
		return &ast.Index{Target: &ast.VarRef{Name: name}, At: &ast.IntLit{Value: at}}
	}

	tests := []struct {
		name string
		expr ast.Expr
		want value.Value
	}{
		{"array first", index("items", 0), value.Str("first")},
		{"array negative", index("items", -1), value.Null()},
		{"array past end", index("items", 2), value.Null()},
		{"string byte", index("word", 1), value.Str("e")},
		{"string negative", index("word", -1), value.Null()},
		{"string past end", index("word", 5), value.Null()},
	}

	for _, tt := range tests {
		got := eval(t, tt.expr, NewContext(resolver, nil))
		if !got.Equal(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}

	// Synthetic length on arrays and strings.
	got := eval(t, &ast.Member{Object: &ast.VarRef{Name: "items"}, Field: "length"}, NewContext(resolver, nil))
	if got.AsInt() != 2 {
		t.Errorf("items.length = %v, want 2", got)
	}
	got = eval(t, &ast.Member{Object: &ast.VarRef{Name: "word"}, Field: "length"}, NewContext(resolver, nil))
	if got.AsInt() != 5 {
		t.Errorf(`"hello".length = %v, want 5`, got)
	}

	// Computed member with a string key on an object.
	obj := value.NewObject()
	obj.Set("color", value.Str("red"))
	got = eval(t, &ast.ComputedMember{
		Object: &ast.VarRef{Name: "style"},
		Key:    &ast.StringLit{Value: "color"},
	}, NewContext(mapResolver{"style": value.ObjectOf(obj)}, nil))
	if got.AsString() != "red" {
		t.Errorf("style[\"color\"] = %v, want red", got)
	}
}

func TestArrayMethods(t *testing.T) {
	items := value.NewArray()
	items.Push(value.Int64(1))
	items.Push(value.Int64(2))
	resolver := mapResolver{"items": value.ArrayOf(items)}

	call := func(method string, args ...ast.Expr) ast.Expr {
		return &ast.MethodCall{Receiver: &ast.VarRef{Name: "items"}, Method: method, Args: args}
	}

	// push returns the new length.
	got := eval(t, call("push", &ast.IntLit{Value: 3}), NewContext(resolver, nil))
	if got.AsInt() != 3 {
		t.Errorf("push: got %v, want 3", got)
	}
	// The receiver was a private copy; the resolver's array is intact.
	if items.Len() != 2 {
		t.Errorf("push mutated shared state: len = %d", items.Len())
	}

	got = eval(t, call("pop"), NewContext(resolver, nil))
	if got.AsInt() != 2 {
		t.Errorf("pop: got %v, want 2", got)
	}

	got = eval(t, call("length"), NewContext(resolver, nil))
	if got.AsInt() != 2 {
		t.Errorf("length: got %v, want 2", got)
	}

	got = eval(t, call("reverse"), NewContext(resolver, nil))
	if got.Kind() != value.KindArray || got.AsArray().At(0).AsInt() != 2 {
		t.Errorf("reverse: got %v", got)
	}

	got = eval(t, call("shuffle"), NewContext(resolver, nil))
	if !got.IsNull() {
		t.Errorf("unknown method: got %v, want null", got)
	}
}

func TestStringMethods(t *testing.T) {
	resolver := mapResolver{"s": value.Str("  Hello  ")}

	call := func(method string, args ...ast.Expr) ast.Expr {
		return &ast.MethodCall{Receiver: &ast.VarRef{Name: "s"}, Method: method, Args: args}
	}

	tests := []struct {
		name string
		expr ast.Expr
		want value.Value
	}{
		{"length", call("length"), value.Int64(9)},
		{"toUpperCase", call("toUpperCase"), value.Str("  HELLO  ")},
		{"toLowerCase", call("toLowerCase"), value.Str("  hello  ")},
		{"trim", call("trim"), value.Str("Hello")},
		{"substring", call("substring", &ast.IntLit{Value: 2}, &ast.IntLit{Value: 7}), value.Str("Hello")},
		{"substring clamps", call("substring", &ast.IntLit{Value: 5}, &ast.IntLit{Value: 100}), value.Str("llo  ")},
		{"substring inverted", call("substring", &ast.IntLit{Value: 7}, &ast.IntLit{Value: 2}), value.Str("")},
		{"unknown", call("reverse"), value.Null()},
	}

	for _, tt := range tests {
		got := eval(t, tt.expr, NewContext(resolver, nil))
		if !got.Equal(tt.want) {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}

	// Method on a numeric receiver degrades to null.
	got := eval(t, &ast.MethodCall{
		Receiver: &ast.IntLit{Value: 5},
		Method:   "toUpperCase",
	}, NewContext(nil, nil))
	if !got.IsNull() {
		t.Errorf("method on int: got %v, want null", got)
	}
}

func TestBuiltinDispatch(t *testing.T) {
	reg := &recordingRegistry{fns: map[string]func([]value.Value) value.Value{
		"string_concat": func(args []value.Value) value.Value {
			out := ""
			for _, a := range args {
				out += a.String()
			}
			return value.Str(out)
		},
	}}

	// Arguments must arrive in declaration order.
	got := eval(t, &ast.Call{Func: "string_concat", Args: []ast.Expr{
		&ast.StringLit{Value: "a"},
		&ast.StringLit{Value: "b"},
		&ast.StringLit{Value: "c"},
	}}, NewContext(nil, reg))
	if got.AsString() != "abc" {
		t.Errorf("builtin args out of order: got %q, want %q", got.AsString(), "abc")
	}

	// Unregistered builtin name degrades to null.
	got = eval(t, &ast.Call{Func: "math_missing"}, NewContext(nil, reg))
	if !got.IsNull() {
		t.Errorf("missing builtin: got %v, want null", got)
	}

	// Nil registry degrades to null without dispatching.
	got = eval(t, &ast.Call{Func: "math_abs", Args: []ast.Expr{&ast.IntLit{Value: -1}}}, NewContext(nil, nil))
	if !got.IsNull() {
		t.Errorf("nil registry: got %v, want null", got)
	}

	// Non-namespaced calls hit the generic opcode and evaluate to null.
	got = eval(t, &ast.Call{Func: "customFn", Args: []ast.Expr{&ast.IntLit{Value: 1}}}, NewContext(nil, reg))
	if !got.IsNull() {
		t.Errorf("generic call: got %v, want null", got)
	}
	if len(reg.called) != 2 {
		t.Errorf("generic call must not reach the registry: %v", reg.called)
	}
}

func TestStackUnderflowDegrades(t *testing.T) {
	// Hand-built malformed streams. The huge call-site argument count
	// models a corrupted unit read back from disk; it must clamp to the
	// live stack instead of sizing an allocation from the immediate.
	tests := []struct {
		name string
		code []Instruction
	}{
		{"add on empty stack", []Instruction{
			{Op: OpAdd},
			{Op: OpHalt},
		}},
		{"function arg count past stack", []Instruction{
			{Op: OpCallFunction, Imm: math.MaxInt32},
			{Op: OpHalt},
		}},
		{"builtin arg count past stack", []Instruction{
			{Op: OpPushInt, Imm: 1},
			{Op: OpCallBuiltin, Imm: math.MaxInt32},
			{Op: OpHalt},
		}},
		{"method arg count past stack", []Instruction{
			{Op: OpCallMethod, Imm: math.MaxInt32},
			{Op: OpHalt},
		}},
	}

	for _, tt := range tests {
		ctx := NewContext(nil, nil)
		got := Eval(&Unit{Code: tt.code}, ctx)

		if !ctx.Failed() {
			t.Errorf("%s: must set the sticky error flag", tt.name)
		}
		if !got.IsNull() {
			t.Errorf("%s: evaluation = %v, want null", tt.name, got)
		}
	}
}

func TestEmptyUnitYieldsNull(t *testing.T) {
	ctx := NewContext(nil, nil)
	got := Eval(&Unit{}, ctx)
	if !got.IsNull() || ctx.Failed() {
		t.Errorf("empty unit: got %v failed=%t, want null without fault", got, ctx.Failed())
	}
}

func TestMalformedPoolReferenceDegrades(t *testing.T) {
	unit := &Unit{Code: []Instruction{
		{Op: OpPushString, Pool: 7}, // no such entry
		{Op: OpHalt},
	}}
	ctx := NewContext(nil, nil)
	got := Eval(unit, ctx)
	if !got.IsNull() {
		t.Errorf("out-of-range pool ref: got %v, want null", got)
	}
	if ctx.Failed() {
		t.Error("pool misses degrade silently, no flag")
	}
}

func TestResolverResultsAreCopied(t *testing.T) {
	arr := value.NewArray()
	arr.Push(value.Int64(1))
	resolver := mapResolver{"items": value.ArrayOf(arr)}

	ctx := NewContext(resolver, nil)
	got := Eval(compileExpr(t, &ast.VarRef{Name: "items"}), ctx)

	got.AsArray().Push(value.Int64(2))
	if arr.Len() != 1 {
		t.Error("evaluation result aliases resolver state")
	}
}

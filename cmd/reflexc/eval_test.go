package main

import (
	"testing"

	"github.com/reflexlang/reflex/pkg/value"
)

func TestParseStateValue(t *testing.T) {
	tests := []struct {
		raw  string
		want value.Value
	}{
		{"42", value.Int64(42)},
		{"2.5", value.Float64(2.5)},
		{"true", value.Boolean(true)},
		{"null", value.Null()},
		{`"quoted"`, value.Str("quoted")},
		{"bare string", value.Str("bare string")},
	}
	for _, tt := range tests {
		if got := parseStateValue(tt.raw); !got.Equal(tt.want) {
			t.Errorf("parseStateValue(%q) = %v (%s), want %v", tt.raw, got, got.Kind(), tt.want)
		}
	}

	arr := parseStateValue(`[1, "two"]`)
	if arr.Kind() != value.KindArray || arr.AsArray().Len() != 2 {
		t.Errorf("array literal parsed to %v", arr)
	}

	obj := parseStateValue(`{"name":"Ann"}`)
	if obj.Kind() != value.KindObject || obj.AsObject().Get("name").AsString() != "Ann" {
		t.Errorf("object literal parsed to %v", obj)
	}
}

func TestStateFlags(t *testing.T) {
	var s stateFlags
	if err := s.Set("count=3"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("title=hello"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("no-equals"); err == nil {
		t.Error("expected an error for a pair without '='")
	}

	if v, ok := s.Resolve("count"); !ok || v.AsInt() != 3 {
		t.Errorf("count resolved to %v", v)
	}
	if _, ok := s.Resolve("missing"); ok {
		t.Error("unexpected hit for unbound name")
	}
}

func TestCLIBuiltins(t *testing.T) {
	b := cliBuiltins{}

	tests := []struct {
		name string
		args []value.Value
		want value.Value
	}{
		{"math_abs", []value.Value{value.Int64(-4)}, value.Int64(4)},
		{"math_abs", []value.Value{value.Float64(-1.5)}, value.Float64(1.5)},
		{"math_min", []value.Value{value.Int64(2), value.Int64(5)}, value.Int64(2)},
		{"math_max", []value.Value{value.Int64(2), value.Int64(5)}, value.Int64(5)},
		{"string_upper", []value.Value{value.Str("ok")}, value.Str("OK")},
		{"type_of", []value.Value{value.Boolean(true)}, value.Str("bool")},
	}
	for _, tt := range tests {
		got, ok := b.Call(tt.name, tt.args)
		if !ok || !got.Equal(tt.want) {
			t.Errorf("%s(%v) = %v ok=%t, want %v", tt.name, tt.args, got, ok, tt.want)
		}
	}

	if _, ok := b.Call("math_unknown", nil); ok {
		t.Error("unknown builtin should report no dispatch")
	}
}

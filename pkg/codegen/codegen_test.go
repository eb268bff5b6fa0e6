package codegen

import (
	"math"
	"strings"
	"testing"

	"github.com/reflexlang/reflex/pkg/ast"
)

func TestGenerateSingleBinding(t *testing.T) {
	result, err := Generate("bindings", []Binding{{
		Name:   "is-visible",
		Source: "count > 3",
		Expr: &ast.Binary{
			Op:    ast.OpGt,
			Left:  &ast.VarRef{Name: "count"},
			Right: &ast.IntLit{Value: 3},
		},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("warnings: %v", result.Warnings)
	}

	for _, want := range []string{
		"// Code generated by reflexc. DO NOT EDIT.",
		"package bindings",
		"var isVisibleUnit = &bytecode.Unit{",
		"Op: bytecode.OpLoadVar",
		"Op: bytecode.OpGt",
		"Op: bytecode.OpHalt",
		`Strings: []string{"count"}`,
		`Source: "count > 3"`,
		"// IsVisible evaluates the \"is-visible\" binding.",
		"func IsVisible(resolver bytecode.Resolver, builtins bytecode.Registry) value.Value {",
		"return bytecode.Eval(isVisibleUnit, bytecode.NewContext(resolver, builtins))",
	} {
		if !strings.Contains(result.Code, want) {
			t.Errorf("generated code missing %q:\n%s", want, result.Code)
		}
	}
}

func TestGenerateFoldsBeforeEmitting(t *testing.T) {
	result, err := Generate("bindings", []Binding{{
		Name: "total",
		Expr: &ast.Binary{
			Op:   ast.OpAdd,
			Left: &ast.IntLit{Value: 1},
			Right: &ast.Binary{
				Op: ast.OpMul, Left: &ast.IntLit{Value: 2}, Right: &ast.IntLit{Value: 3},
			},
		},
	}})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(result.Code, "Imm: 7") {
		t.Errorf("constant expression not folded:\n%s", result.Code)
	}
	if strings.Contains(result.Code, "OpMul") {
		t.Errorf("folded expression still contains the multiply:\n%s", result.Code)
	}
}

func TestGeneratePooledConstants(t *testing.T) {
	result, err := Generate("bindings", []Binding{{
		Name: "big",
		Expr: &ast.Binary{
			Op:    ast.OpAdd,
			Left:  &ast.VarRef{Name: "n"},
			Right: &ast.IntLit{Value: 1 << 40},
		},
	}})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"Ints: []int64{1099511627776}",
		"Flag: bytecode.FlagPooled",
	} {
		if !strings.Contains(result.Code, want) {
			t.Errorf("generated code missing %q:\n%s", want, result.Code)
		}
	}
}

func TestGenerateFullRangeIntConstants(t *testing.T) {
	// Pool literals render as bare decimals, so values outside the
	// 32-bit range survive regardless of the platform's int width.
	result, err := Generate("bindings", []Binding{{
		Name: "extremes",
		Expr: &ast.Binary{
			Op:    ast.OpAdd,
			Left:  &ast.Binary{Op: ast.OpAdd, Left: &ast.VarRef{Name: "n"}, Right: &ast.IntLit{Value: math.MaxInt64}},
			Right: &ast.IntLit{Value: math.MinInt64},
		},
	}})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"9223372036854775807",
		"-9223372036854775808",
	} {
		if !strings.Contains(result.Code, want) {
			t.Errorf("generated code missing %q:\n%s", want, result.Code)
		}
	}
}

func TestGenerateNameHandling(t *testing.T) {
	result, err := Generate("bindings", []Binding{
		{Name: "title", Expr: &ast.IntLit{Value: 1}},
		{Name: "Title", Expr: &ast.IntLit{Value: 2}}, // collides after exporting
		{Name: "---", Expr: &ast.IntLit{Value: 3}},   // nothing usable
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Warnings) != 2 {
		t.Fatalf("warnings = %v, want collision and skip", result.Warnings)
	}
	if !strings.Contains(result.Code, "func Title(") || !strings.Contains(result.Code, "func TitleX(") {
		t.Errorf("collision not renamed:\n%s", result.Code)
	}
}

func TestExportedName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"is-visible", "IsVisible"},
		{"title_text", "TitleText"},
		{"count", "Count"},
		{"item2label", "Item2Label"},
		{"--", ""},
	}
	for _, tt := range tests {
		if got := exportedName(tt.in); got != tt.want {
			t.Errorf("exportedName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

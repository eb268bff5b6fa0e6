// Package codegen emits Go source for ahead-of-time compiled binding
// expressions. Each binding becomes a package-level Unit literal (the
// exact bytecode the runtime compiler would produce, constant pools
// included) plus an exported evaluation function, so host applications
// can ship bindings without compiling trees at startup.
package codegen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"

	"github.com/reflexlang/reflex/pkg/ast"
	"github.com/reflexlang/reflex/pkg/bytecode"
)

const (
	bytecodePkg = "github.com/reflexlang/reflex/pkg/bytecode"
	valuePkg    = "github.com/reflexlang/reflex/pkg/value"
)

// Binding pairs a binding name with its expression tree. Source, when
// set, is echoed into the generated unit for diagnostics.
type Binding struct {
	Name   string
	Expr   ast.Expr
	Source string
}

// Result contains the rendered source and any per-binding warnings.
type Result struct {
	Code     string
	Warnings []string
}

type generator struct {
	warnings []string
	used     map[string]bool
}

// Generate renders one Go file in pkgName containing every binding.
// Bindings whose names cannot be made into Go identifiers are skipped
// with a warning rather than failing the whole batch.
func Generate(pkgName string, bindings []Binding) (*Result, error) {
	g := &generator{used: make(map[string]bool)}

	f := jen.NewFile(pkgName)
	f.HeaderComment("Code generated by reflexc. DO NOT EDIT.")

	for _, b := range bindings {
		if err := g.emitBinding(f, b); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("rendering generated source: %w", err)
	}
	return &Result{Code: buf.String(), Warnings: g.warnings}, nil
}

func (g *generator) emitBinding(f *jen.File, b Binding) error {
	goName := exportedName(b.Name)
	if goName == "" {
		g.warnings = append(g.warnings, fmt.Sprintf("binding %q: no usable identifier, skipped", b.Name))
		return nil
	}
	for g.used[goName] {
		g.warnings = append(g.warnings, fmt.Sprintf("binding %q: name collides, renamed", b.Name))
		goName += "X"
	}
	g.used[goName] = true

	c := bytecode.NewCompiler()
	if b.Source != "" {
		c.SetSource(b.Source)
	}
	unit, err := c.Compile(bytecode.Fold(b.Expr))
	if err != nil {
		return fmt.Errorf("compiling binding %q: %w", b.Name, err)
	}
	bytecode.EliminateDeadCode(unit)

	unitVar := unexportedName(goName) + "Unit"

	f.Var().Id(unitVar).Op("=").Add(unitLiteral(unit))
	f.Line()

	f.Commentf("%s evaluates the %q binding.", goName, b.Name)
	f.Func().Id(goName).Params(
		jen.Id("resolver").Qual(bytecodePkg, "Resolver"),
		jen.Id("builtins").Qual(bytecodePkg, "Registry"),
	).Qual(valuePkg, "Value").Block(
		jen.Return(jen.Qual(bytecodePkg, "Eval").Call(
			jen.Id(unitVar),
			jen.Qual(bytecodePkg, "NewContext").Call(jen.Id("resolver"), jen.Id("builtins")),
		)),
	)
	f.Line()
	return nil
}

func unitLiteral(u *bytecode.Unit) *jen.Statement {
	fields := jen.Dict{
		jen.Id("Code"):     instructionsLiteral(u.Code),
		jen.Id("MaxStack"): jen.Lit(u.MaxStack),
	}
	if len(u.Strings) > 0 {
		fields[jen.Id("Strings")] = jen.Index().String().ValuesFunc(func(grp *jen.Group) {
			for _, s := range u.Strings {
				grp.Lit(s)
			}
		})
	}
	if len(u.Ints) > 0 {
		fields[jen.Id("Ints")] = jen.Index().Int64().ValuesFunc(func(grp *jen.Group) {
			for _, v := range u.Ints {
				// Rendered as a bare decimal so the slice's element
				// type carries it; Lit would either insert an int64
				// conversion or truncate through int.
				grp.Id(strconv.FormatInt(v, 10))
			}
		})
	}
	if u.Source != "" {
		fields[jen.Id("Source")] = jen.Lit(u.Source)
	}
	return jen.Op("&").Qual(bytecodePkg, "Unit").Values(fields)
}

func instructionsLiteral(code []bytecode.Instruction) *jen.Statement {
	return jen.Index().Qual(bytecodePkg, "Instruction").ValuesFunc(func(grp *jen.Group) {
		for _, ins := range code {
			fields := jen.Dict{
				jen.Id("Op"): jen.Qual(bytecodePkg, opIdents[ins.Op]),
			}
			if ins.Flag != 0 {
				fields[jen.Id("Flag")] = jen.Qual(bytecodePkg, "FlagPooled")
			}
			if ins.Pool != 0 {
				fields[jen.Id("Pool")] = jen.Lit(int(ins.Pool))
			}
			if ins.Imm != 0 {
				fields[jen.Id("Imm")] = jen.Lit(int(ins.Imm))
			}
			grp.Values(fields)
		}
	})
}

var opIdents = map[bytecode.Opcode]string{
	bytecode.OpNop:             "OpNop",
	bytecode.OpPushInt:         "OpPushInt",
	bytecode.OpPushFloat:       "OpPushFloat",
	bytecode.OpPushString:      "OpPushString",
	bytecode.OpPushBool:        "OpPushBool",
	bytecode.OpPushNull:        "OpPushNull",
	bytecode.OpDup:             "OpDup",
	bytecode.OpPop:             "OpPop",
	bytecode.OpSwap:            "OpSwap",
	bytecode.OpLoadVar:         "OpLoadVar",
	bytecode.OpGetProp:         "OpGetProp",
	bytecode.OpGetPropComputed: "OpGetPropComputed",
	bytecode.OpGetIndex:        "OpGetIndex",
	bytecode.OpCallMethod:      "OpCallMethod",
	bytecode.OpCallBuiltin:     "OpCallBuiltin",
	bytecode.OpCallFunction:    "OpCallFunction",
	bytecode.OpAdd:             "OpAdd",
	bytecode.OpSub:             "OpSub",
	bytecode.OpMul:             "OpMul",
	bytecode.OpDiv:             "OpDiv",
	bytecode.OpMod:             "OpMod",
	bytecode.OpEq:              "OpEq",
	bytecode.OpNeq:             "OpNeq",
	bytecode.OpLt:              "OpLt",
	bytecode.OpLte:             "OpLte",
	bytecode.OpGt:              "OpGt",
	bytecode.OpGte:             "OpGte",
	bytecode.OpAnd:             "OpAnd",
	bytecode.OpOr:              "OpOr",
	bytecode.OpNot:             "OpNot",
	bytecode.OpNegate:          "OpNegate",
	bytecode.OpJump:            "OpJump",
	bytecode.OpJumpIfFalse:     "OpJumpIfFalse",
	bytecode.OpJumpIfTrue:      "OpJumpIfTrue",
	bytecode.OpHalt:            "OpHalt",
}

// exportedName turns a binding name like "is-visible" or "title_text"
// into an exported Go identifier.
func exportedName(name string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range name {
		switch {
		case unicode.IsLetter(r):
			if upperNext {
				b.WriteRune(unicode.ToUpper(r))
				upperNext = false
			} else {
				b.WriteRune(r)
			}
		case unicode.IsDigit(r) && b.Len() > 0:
			b.WriteRune(r)
			upperNext = true
		default:
			upperNext = true
		}
	}
	return b.String()
}

func unexportedName(exported string) string {
	r := []rune(exported)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

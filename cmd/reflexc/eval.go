package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/reflexlang/reflex/manifest"
	"github.com/reflexlang/reflex/pkg/ast"
	"github.com/reflexlang/reflex/pkg/bytecode"
	"github.com/reflexlang/reflex/pkg/value"
)

// stateFlags collects repeated -s name=value pairs into a resolver.
type stateFlags struct {
	bindings map[string]value.Value
}

func (s *stateFlags) String() string { return "" }

func (s *stateFlags) Set(arg string) error {
	name, raw, found := strings.Cut(arg, "=")
	if !found || name == "" {
		return fmt.Errorf("state must be name=value, got %q", arg)
	}
	if s.bindings == nil {
		s.bindings = make(map[string]value.Value)
	}
	s.bindings[name] = parseStateValue(raw)
	return nil
}

func (s *stateFlags) Resolve(name string) (value.Value, bool) {
	v, ok := s.bindings[name]
	return v, ok
}

// parseStateValue interprets a command-line literal: JSON when it looks
// like JSON, bare string otherwise.
func parseStateValue(raw string) value.Value {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return value.Str(raw)
	}
	return jsonValue(parsed)
}

func jsonValue(raw any) value.Value {
	switch v := raw.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Boolean(v)
	case string:
		return value.Str(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return value.Int64(i)
		}
		f, _ := v.Float64()
		return value.Float64(f)
	case []any:
		arr := value.NewArray()
		for _, item := range v {
			arr.Push(jsonValue(item))
		}
		return value.ArrayOf(arr)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := value.NewObject()
		for _, k := range keys {
			obj.Set(k, jsonValue(v[k]))
		}
		return value.ObjectOf(obj)
	}
	return value.Null()
}

// cliBuiltins is a small registry so eval sessions can exercise
// builtin dispatch without a host application.
type cliBuiltins struct{}

func (cliBuiltins) Call(name string, args []value.Value) (value.Value, bool) {
	switch name {
	case "math_abs":
		if len(args) < 1 {
			return value.Null(), true
		}
		switch args[0].Kind() {
		case value.KindInt:
			n := args[0].AsInt()
			if n < 0 {
				n = -n
			}
			return value.Int64(n), true
		case value.KindFloat:
			return value.Float64(math.Abs(args[0].AsFloat())), true
		}
		return value.Null(), true
	case "math_min", "math_max":
		if len(args) < 2 || !args[0].IsNumeric() || !args[1].IsNumeric() {
			return value.Null(), true
		}
		a, b := args[0], args[1]
		pickFirst := a.AsFloat() <= b.AsFloat()
		if name == "math_max" {
			pickFirst = !pickFirst
		}
		if pickFirst {
			return a, true
		}
		return b, true
	case "string_upper":
		if len(args) < 1 {
			return value.Null(), true
		}
		return value.Str(strings.ToUpper(args[0].String())), true
	case "string_lower":
		if len(args) < 1 {
			return value.Null(), true
		}
		return value.Str(strings.ToLower(args[0].String())), true
	case "type_of":
		if len(args) < 1 {
			return value.Null(), true
		}
		return value.Str(args[0].Kind().String()), true
	}
	return value.Null(), false
}

// loadExpr resolves the expression for disasm/eval: inline JSON wins,
// otherwise a named manifest binding.
func loadExpr(exprJSON, dir, name string) (ast.Expr, string, error) {
	if exprJSON != "" {
		expr, err := ast.FromJSON([]byte(exprJSON))
		return expr, "", err
	}
	if name == "" {
		return nil, "", fmt.Errorf("need -expr or -name")
	}
	m, err := loadManifest(dir)
	if err != nil {
		return nil, "", err
	}
	expr, err := m.Tree(name)
	if err != nil {
		return nil, "", err
	}
	return expr, m.Bindings[name].Source, nil
}

func runDisasm(args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	exprJSON := fs.String("expr", "", "expression tree JSON")
	name := fs.String("name", "", "manifest binding name")
	dir := fs.String("C", ".", "directory containing "+manifest.ManifestName)
	optimize := fs.Bool("O", true, "apply constant folding and dead-code elimination")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Parse(args)
	configureLogging(*verbose)

	expr, source, err := loadExpr(*exprJSON, *dir, *name)
	if err != nil {
		return err
	}

	if *optimize {
		expr = bytecode.Fold(expr)
	}
	c := bytecode.NewCompiler()
	if source != "" {
		c.SetSource(source)
	}
	unit, err := c.Compile(expr)
	if err != nil {
		return err
	}
	if *optimize {
		bytecode.EliminateDeadCode(unit)
	}

	fmt.Print(bytecode.Disassemble(unit))
	return nil
}

func runEval(args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	exprJSON := fs.String("expr", "", "expression tree JSON")
	name := fs.String("name", "", "manifest binding name")
	dir := fs.String("C", ".", "directory containing "+manifest.ManifestName)
	verbose := fs.Bool("v", false, "verbose logging")
	var state stateFlags
	fs.Var(&state, "s", "state binding name=value (repeatable)")
	fs.Parse(args)
	configureLogging(*verbose)

	expr, _, err := loadExpr(*exprJSON, *dir, *name)
	if err != nil {
		return err
	}

	unit, err := bytecode.NewCompiler().Compile(bytecode.Fold(expr))
	if err != nil {
		return err
	}
	bytecode.EliminateDeadCode(unit)

	ctx := bytecode.NewContext(&state, cliBuiltins{})
	result := bytecode.Eval(unit, ctx)
	if ctx.Failed() {
		log.Warningf("evaluation degraded: stack fault")
	}

	log.Infof("result kind: %s", result.Kind())
	fmt.Println(result)
	return nil
}

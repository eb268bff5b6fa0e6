package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reflexlang/reflex/manifest"
	"github.com/reflexlang/reflex/pkg/ast"
	"github.com/reflexlang/reflex/pkg/bytecode"
	"github.com/reflexlang/reflex/pkg/cache"
	"github.com/reflexlang/reflex/pkg/codegen"
)

func loadManifest(dir string) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("no %s found in or above %s", manifest.ManifestName, dir)
	}
	return m, nil
}

// compileBinding runs the full pipeline for one manifest binding.
func compileBinding(m *manifest.Manifest, name string) (ast.Expr, *bytecode.Unit, error) {
	expr, err := m.Tree(name)
	if err != nil {
		return nil, nil, err
	}

	c := bytecode.NewCompiler()
	if src := m.Bindings[name].Source; src != "" {
		c.SetSource(src)
	}
	unit, err := c.Compile(bytecode.Fold(expr))
	if err != nil {
		return nil, nil, fmt.Errorf("compiling %q: %w", name, err)
	}
	bytecode.EliminateDeadCode(unit)
	return expr, unit, nil
}

func runCompile(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	dir := fs.String("C", ".", "directory containing "+manifest.ManifestName)
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Parse(args)
	configureLogging(*verbose)

	m, err := loadManifest(*dir)
	if err != nil {
		return err
	}

	unitsPath := m.Output.Units
	if unitsPath == "" {
		unitsPath = "units.db"
	}
	if !filepath.IsAbs(unitsPath) {
		unitsPath = filepath.Join(m.Dir, unitsPath)
	}
	if err := os.MkdirAll(filepath.Dir(unitsPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	store, err := cache.OpenStore(unitsPath)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, name := range m.Names() {
		expr, unit, err := compileBinding(m, name)
		if err != nil {
			return err
		}
		tree, err := ast.ToJSON(expr)
		if err != nil {
			return err
		}
		if err := store.Save(ast.Hash(expr), tree, unit); err != nil {
			return fmt.Errorf("storing %q: %w", name, err)
		}
		log.Infof("compiled %s: %d instructions, max stack %d", name, len(unit.Code), unit.MaxStack)
	}

	log.Noticef("wrote %d units to %s", len(m.Bindings), unitsPath)
	return nil
}

func runGen(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	dir := fs.String("C", ".", "directory containing "+manifest.ManifestName)
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Parse(args)
	configureLogging(*verbose)

	m, err := loadManifest(*dir)
	if err != nil {
		return err
	}

	bindings := make([]codegen.Binding, 0, len(m.Bindings))
	for _, name := range m.Names() {
		expr, err := m.Tree(name)
		if err != nil {
			return err
		}
		bindings = append(bindings, codegen.Binding{
			Name:   name,
			Expr:   expr,
			Source: m.Bindings[name].Source,
		})
	}

	result, err := codegen.Generate(m.Output.Package, bindings)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		log.Warningf("%s", w)
	}

	goFile := m.Output.GoFile
	if goFile == "" {
		goFile = "bindings.go"
	}
	if !filepath.IsAbs(goFile) {
		goFile = filepath.Join(m.Dir, goFile)
	}
	if err := os.MkdirAll(filepath.Dir(goFile), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(goFile, []byte(result.Code), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", goFile, err)
	}

	log.Noticef("generated %s (%d bindings)", goFile, len(bindings))
	return nil
}

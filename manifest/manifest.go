// Package manifest handles reflex.toml binding-bundle configuration.
//
// A manifest declares a set of named binding expressions for a UI
// component bundle, either inline as expression-tree JSON or by
// reference to tree files, along with output settings for ahead-of-time
// compilation.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/reflexlang/reflex/pkg/ast"
)

// ManifestName is the file name looked up by Load and FindAndLoad.
const ManifestName = "reflex.toml"

// Manifest represents a reflex.toml binding bundle.
type Manifest struct {
	Bundle   Bundle             `toml:"bundle"`
	Bindings map[string]Binding `toml:"bindings"`
	Output   Output             `toml:"output"`

	// Dir is the directory containing the reflex.toml file, set at
	// load time.
	Dir string `toml:"-"`
}

// Bundle contains bundle metadata.
type Bundle struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Binding declares one expression, inline or by file reference.
type Binding struct {
	// Expr is the expression tree in its JSON interchange form.
	Expr string `toml:"expr"`
	// File points at a JSON tree file, relative to the manifest
	// directory. Ignored when Expr is set.
	File string `toml:"file"`
	// Source optionally echoes the original expression text into the
	// compiled unit for diagnostics.
	Source string `toml:"source"`
}

// Output configures ahead-of-time compilation results.
type Output struct {
	// Units is the path of the compiled-unit store written by the
	// compile command.
	Units string `toml:"units"`
	// Package names the Go package emitted by the generate command.
	Package string `toml:"package"`
	// GoFile is the path of the generated Go source file.
	GoFile string `toml:"go-file"`
}

// Load parses a reflex.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if m.Output.Package == "" {
		m.Output.Package = "bindings"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a reflex.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ManifestName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Tree resolves the expression tree for the named binding, reading the
// referenced file when the expression is not inline.
func (m *Manifest) Tree(name string) (ast.Expr, error) {
	b, ok := m.Bindings[name]
	if !ok {
		return nil, fmt.Errorf("no binding named %q", name)
	}

	data := []byte(b.Expr)
	if b.Expr == "" {
		if b.File == "" {
			return nil, fmt.Errorf("binding %q declares neither expr nor file", name)
		}
		path := b.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.Dir, path)
		}
		data, ok = readAll(path)
		if !ok {
			return nil, fmt.Errorf("binding %q: cannot read %s", name, path)
		}
	}

	expr, err := ast.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("binding %q: %w", name, err)
	}
	return expr, nil
}

// Names returns the binding names in sorted order for deterministic
// compile output.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Bindings))
	for name := range m.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func readAll(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

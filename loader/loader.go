// Package loader reads .sublime-syntax grammars and .tmTheme themes from
// disk and wires them into a syntax.Builder / theme.Theme, the way the
// root-level Loader once walked a grammars directory and fed a
// textmate.Grammar map (see loadFile/NewLoaderFromDir in the original
// tree). The file formats changed - YAML grammars, plist themes - but the
// "walk a directory, dispatch on extension, accumulate into a registry"
// shape carries over unchanged.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/friedelschoen/highlight/syntax"
	"github.com/friedelschoen/highlight/theme"
)

// Registry accumulates grammars (via an internal syntax.Builder) and themes
// loaded from disk, ready to be linked into a single immutable SyntaxSet.
type Registry struct {
	builder *syntax.Builder
	themes  map[string]*theme.Theme
}

// NewRegistry creates an empty Registry. Options are forwarded to the
// underlying syntax.Builder (WithLogger, WithStrictReferences).
func NewRegistry(opts ...syntax.BuildOption) *Registry {
	return &Registry{
		builder: syntax.NewBuilder(opts...),
		themes:  make(map[string]*theme.Theme),
	}
}

// AddSyntax registers an already-decoded grammar with the builder.
func (r *Registry) AddSyntax(g *syntax.SourceSyntax) { r.builder.Add(g) }

// LoadSyntaxFile reads and decodes a single .sublime-syntax file and
// registers it.
func (r *Registry) LoadSyntaxFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	g, err := ParseSyntax(data)
	if err != nil {
		return fmt.Errorf("loader: %s: %w", path, err)
	}
	r.builder.Add(g)
	return nil
}

// LoadThemeFile reads and decodes a single .tmTheme file, registering it
// under its basename without extension (e.g. "Monokai.tmTheme" -> "Monokai").
func (r *Registry) LoadThemeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	th, errs := theme.Parse(data)
	if len(errs) > 0 {
		return fmt.Errorf("loader: %s: %w", path, errs[0])
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	r.themes[name] = th
	return nil
}

// LoadSyntaxDir walks dir recursively, loading every *.sublime-syntax file
// it finds. A missing directory is not an error (mirrors the original
// Loader's tolerance of an absent user-local grammars directory).
func (r *Registry) LoadSyntaxDir(dir string) error {
	return walkExt(dir, ".sublime-syntax", r.LoadSyntaxFile)
}

// LoadThemeDir walks dir recursively, loading every *.tmTheme file it finds.
func (r *Registry) LoadThemeDir(dir string) error {
	return walkExt(dir, ".tmTheme", r.LoadThemeFile)
}

func walkExt(dir, ext string, load func(string) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if err := walkExt(full, ext, load); err != nil {
				return err
			}
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			if err := load(full); err != nil {
				return err
			}
		}
	}
	return nil
}

// Theme returns the named theme and whether it was found.
func (r *Registry) Theme(name string) (*theme.Theme, bool) {
	th, ok := r.themes[name]
	return th, ok
}

// ThemeNames lists every loaded theme's registered name.
func (r *Registry) ThemeNames() []string {
	names := make([]string, 0, len(r.themes))
	for name := range r.themes {
		names = append(names, name)
	}
	return names
}

// Builder exposes the underlying syntax.Builder for callers that want to
// Add grammars directly before Link.
func (r *Registry) Builder() *syntax.Builder { return r.builder }

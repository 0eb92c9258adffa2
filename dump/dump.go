// Package dump implements the optional binary cache format: a linked
// SyntaxSet, minus its compiled regexes, serialized with encoding/gob so a
// CLI can skip re-parsing and re-linking every grammar file on each
// invocation (§6 "dump format"). Regex *sources* are retained; MatchPattern
// recompiles them lazily on first use exactly as it would after a fresh
// Builder.Link, so a restored SyntaxSet behaves identically to a freshly
// built one.
package dump

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/friedelschoen/highlight/scope"
	"github.com/friedelschoen/highlight/syntax"
)

// formatVersion is bumped whenever the on-disk shape changes incompatibly,
// so Decode can reject a stale cache instead of misinterpreting its bytes.
const formatVersion = 1

type file struct {
	Version     int
	Contexts    []dumpContext
	Definitions []dumpDefinition
}

type dumpContext struct {
	Name             string
	Patterns         []dumpPattern
	MetaScope        []string
	MetaContentScope []string
	IncludePrototype bool
	ClearScopes      *scope.ClearAmount
}

type dumpPattern struct {
	Source        string
	Scope         []string
	Captures      map[int][]string
	WithPrototype syntax.ContextId
	Action        dumpAction
}

type dumpAction struct {
	Kind       syntax.ActionKind
	Targets    []syntax.ContextId
	PopCount   int
	Embedded   syntax.ContextId
	EmbedScope string
	Escape     *dumpPattern
}

type dumpDefinition struct {
	Name                 string
	Scope                string
	FileExtensions       []string
	HiddenFileExtensions []string
	FirstLineMatch       string
	Contexts             map[string]syntax.ContextId
	Prototype            syntax.ContextId
}

// Encode serializes set's contexts and grammar definitions, dropping any
// compiled regex state (MatchPattern recompiles Source lazily on demand).
func Encode(set *syntax.SyntaxSet) ([]byte, error) {
	f := file{Version: formatVersion}

	for i := 0; i < set.NumContexts(); i++ {
		c := set.Context(syntax.ContextId(i))
		dc := dumpContext{
			Name:             c.Name,
			MetaScope:        scopesToStrings(c.MetaScope),
			MetaContentScope: scopesToStrings(c.MetaContentScope),
			IncludePrototype: c.IncludePrototype,
			ClearScopes:      c.ClearScopes,
		}
		for _, p := range c.Patterns {
			dc.Patterns = append(dc.Patterns, dumpMatchPattern(p))
		}
		f.Contexts = append(f.Contexts, dc)
	}

	for _, d := range set.Definitions() {
		f.Definitions = append(f.Definitions, dumpDefinition{
			Name:                 d.Name,
			Scope:                d.Scope.String(),
			FileExtensions:       d.FileExtensions,
			HiddenFileExtensions: d.HiddenFileExtensions,
			FirstLineMatch:       firstLineSource(d.FirstLineMatch),
			Contexts:             d.Contexts,
			Prototype:            d.Prototype,
		})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&f); err != nil {
		return nil, fmt.Errorf("dump: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reconstructs a SyntaxSet from bytes produced by Encode. Every
// MatchPattern is returned uncompiled; the first match attempt against it
// compiles its regex exactly as syntax.MatchPattern always does.
func Decode(data []byte) (*syntax.SyntaxSet, error) {
	var f file
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return nil, fmt.Errorf("dump: decode: %w", err)
	}
	if f.Version != formatVersion {
		return nil, fmt.Errorf("dump: unsupported format version %d (want %d)", f.Version, formatVersion)
	}

	contexts := make([]*syntax.Context, len(f.Contexts))
	for i, dc := range f.Contexts {
		metaScope, err := stringsToScopes(dc.MetaScope)
		if err != nil {
			return nil, err
		}
		metaContentScope, err := stringsToScopes(dc.MetaContentScope)
		if err != nil {
			return nil, err
		}
		patterns := make([]*syntax.MatchPattern, len(dc.Patterns))
		for j, dp := range dc.Patterns {
			pat, err := undumpMatchPattern(dp)
			if err != nil {
				return nil, err
			}
			patterns[j] = pat
		}
		contexts[i] = &syntax.Context{
			Name:             dc.Name,
			Patterns:         patterns,
			MetaScope:        metaScope,
			MetaContentScope: metaContentScope,
			IncludePrototype: dc.IncludePrototype,
			ClearScopes:      dc.ClearScopes,
		}
	}

	defs := make(map[string]*syntax.SyntaxDefinition, len(f.Definitions))
	for _, dd := range f.Definitions {
		sc, err := scope.ParseScope(dd.Scope)
		if err != nil {
			return nil, fmt.Errorf("dump: definition %q: %w", dd.Name, err)
		}
		def := &syntax.SyntaxDefinition{
			Name:                 dd.Name,
			Scope:                sc,
			FileExtensions:       dd.FileExtensions,
			HiddenFileExtensions: dd.HiddenFileExtensions,
			Contexts:             dd.Contexts,
			Prototype:            dd.Prototype,
		}
		if dd.FirstLineMatch != "" {
			pat, err := syntax.NewSimpleMatchPattern(dd.FirstLineMatch)
			if err != nil {
				return nil, fmt.Errorf("dump: definition %q: first_line_match: %w", dd.Name, err)
			}
			def.FirstLineMatch = pat
		}
		defs[dd.Scope] = def
	}

	return syntax.Rehydrate(contexts, defs), nil
}

func dumpMatchPattern(p *syntax.MatchPattern) dumpPattern {
	dp := dumpPattern{
		Source:        p.Source,
		Scope:         scopesToStrings(p.Scope),
		WithPrototype: p.WithPrototype,
		Action: dumpAction{
			Kind:       p.Action.Kind,
			Targets:    p.Action.Targets,
			PopCount:   p.Action.PopCount,
			Embedded:   p.Action.Embedded,
			EmbedScope: p.Action.EmbedScope.String(),
		},
	}
	if len(p.Captures) > 0 {
		dp.Captures = make(map[int][]string, len(p.Captures))
		for k, v := range p.Captures {
			dp.Captures[k] = scopesToStrings(v)
		}
	}
	if p.Action.Escape != nil {
		esc := dumpMatchPattern(p.Action.Escape)
		dp.Action.Escape = &esc
	}
	return dp
}

func undumpMatchPattern(dp dumpPattern) (*syntax.MatchPattern, error) {
	sc, err := stringsToScopes(dp.Scope)
	if err != nil {
		return nil, err
	}
	var captures map[int][]scope.Scope
	if len(dp.Captures) > 0 {
		captures = make(map[int][]scope.Scope, len(dp.Captures))
		for k, v := range dp.Captures {
			cs, err := stringsToScopes(v)
			if err != nil {
				return nil, err
			}
			captures[k] = cs
		}
	}
	action := syntax.Action{
		Kind:     dp.Action.Kind,
		Targets:  dp.Action.Targets,
		PopCount: dp.Action.PopCount,
		Embedded: dp.Action.Embedded,
	}
	if dp.Action.EmbedScope != "" {
		es, err := scope.ParseScope(dp.Action.EmbedScope)
		if err != nil {
			return nil, err
		}
		action.EmbedScope = es
	}
	if dp.Action.Escape != nil {
		esc, err := undumpMatchPattern(*dp.Action.Escape)
		if err != nil {
			return nil, err
		}
		action.Escape = esc
	}
	return &syntax.MatchPattern{
		Source:        dp.Source,
		HasBackrefs:   syntax.HasBackrefs(dp.Source),
		Scope:         sc,
		Captures:      captures,
		Action:        action,
		WithPrototype: dp.WithPrototype,
	}, nil
}

func scopesToStrings(scopes []scope.Scope) []string {
	if len(scopes) == 0 {
		return nil
	}
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = s.String()
	}
	return out
}

func stringsToScopes(texts []string) ([]scope.Scope, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([]scope.Scope, len(texts))
	for i, t := range texts {
		s, err := scope.ParseScope(t)
		if err != nil {
			return nil, fmt.Errorf("dump: scope %q: %w", t, err)
		}
		out[i] = s
	}
	return out, nil
}

func firstLineSource(p *syntax.MatchPattern) string {
	if p == nil {
		return ""
	}
	return p.Source
}

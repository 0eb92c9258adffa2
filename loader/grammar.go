package loader

import (
	"fmt"
	"strconv"

	"github.com/friedelschoen/highlight/syntax"
	"gopkg.in/yaml.v3"
)

// yamlSyntax mirrors the top level of a .sublime-syntax document. Sublime
// syntaxes are YAML 1.2 with a "%YAML 1.2\n---" header that yaml.v3 treats
// as an ordinary document separator, so no special handling is needed there.
type yamlSyntax struct {
	Name                 string              `yaml:"name"`
	FileExtensions       []string            `yaml:"file_extensions"`
	HiddenFileExtensions []string            `yaml:"hidden_file_extensions"`
	FirstLineMatch       string              `yaml:"first_line_match"`
	Scope                string              `yaml:"scope"`
	Variables            map[string]string   `yaml:"variables"`
	Contexts             map[string][]yamlRule `yaml:"contexts"`
}

// yamlRule mirrors one rule entry. push/set/pop/clear_scopes are polymorphic
// in real .sublime-syntax files (a bare string, a list of context names, or
// an inline rule list for push/set; a bool or an integer for pop/
// clear_scopes), so they're decoded as raw yaml.Node and resolved by hand.
type yamlRule struct {
	Match                string            `yaml:"match"`
	Scope                string            `yaml:"scope"`
	Captures             map[string]string `yaml:"captures"`
	Push                 yaml.Node         `yaml:"push"`
	Set                  yaml.Node         `yaml:"set"`
	Pop                  yaml.Node         `yaml:"pop"`
	Include              string            `yaml:"include"`
	WithPrototype        []yamlRule        `yaml:"with_prototype"`
	MetaScope            string            `yaml:"meta_scope"`
	MetaContentScope     string            `yaml:"meta_content_scope"`
	MetaIncludePrototype *bool             `yaml:"meta_include_prototype"`
	ClearScopes          yaml.Node         `yaml:"clear_scopes"`
	Embed                string            `yaml:"embed"`
	Escape               string            `yaml:"escape"`
	EmbedScope           string            `yaml:"embed_scope"`
	EscapeCaptures       map[string]string `yaml:"escape_captures"`
}

// ParseSyntax decodes a .sublime-syntax document's bytes into a
// syntax.SourceSyntax, ready for syntax.Builder.Add.
func ParseSyntax(data []byte) (*syntax.SourceSyntax, error) {
	var ys yamlSyntax
	if err := yaml.Unmarshal(data, &ys); err != nil {
		return nil, err
	}
	out := &syntax.SourceSyntax{
		Name:                 ys.Name,
		FileExtensions:       ys.FileExtensions,
		HiddenFileExtensions: ys.HiddenFileExtensions,
		FirstLineMatch:       ys.FirstLineMatch,
		Scope:                ys.Scope,
		Variables:            ys.Variables,
		Contexts:             make(map[string][]syntax.SourceRule, len(ys.Contexts)),
	}
	for name, rules := range ys.Contexts {
		converted, err := convertRules(rules)
		if err != nil {
			return nil, fmt.Errorf("context %q: %w", name, err)
		}
		out.Contexts[name] = converted
	}
	return out, nil
}

func convertRules(rules []yamlRule) ([]syntax.SourceRule, error) {
	out := make([]syntax.SourceRule, len(rules))
	for i, yr := range rules {
		r, err := convertRule(yr)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func convertRule(yr yamlRule) (syntax.SourceRule, error) {
	var err error
	r := syntax.SourceRule{
		Match:                yr.Match,
		Scope:                yr.Scope,
		Include:              yr.Include,
		MetaScope:            yr.MetaScope,
		MetaContentScope:     yr.MetaContentScope,
		MetaIncludePrototype: yr.MetaIncludePrototype,
		Escape:               yr.Escape,
		EmbedScope:           yr.EmbedScope,
	}
	if r.Captures, err = convertCaptures(yr.Captures); err != nil {
		return r, err
	}
	if r.EscapeCaptures, err = convertCaptures(yr.EscapeCaptures); err != nil {
		return r, err
	}
	if r.Push, err = decodeContextRefs(&yr.Push); err != nil {
		return r, fmt.Errorf("push: %w", err)
	}
	if r.Set, err = decodeContextRefs(&yr.Set); err != nil {
		return r, fmt.Errorf("set: %w", err)
	}
	if r.Pop, err = decodePop(&yr.Pop); err != nil {
		return r, fmt.Errorf("pop: %w", err)
	}
	if r.ClearScopes, err = decodeClearScopes(&yr.ClearScopes); err != nil {
		return r, fmt.Errorf("clear_scopes: %w", err)
	}
	if len(yr.WithPrototype) > 0 {
		if r.WithPrototype, err = convertRules(yr.WithPrototype); err != nil {
			return r, err
		}
	}
	if yr.Embed != "" {
		r.Embed = &syntax.SourceContextRef{Name: yr.Embed}
	}
	return r, nil
}

func convertCaptures(in map[string]string) (map[int]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[int]string, len(in))
	for k, v := range in {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("capture group %q: %w", k, err)
		}
		out[n] = v
	}
	return out, nil
}

// decodeContextRefs resolves a push/set node, which may be absent, a single
// context name, a list of context names, or an inline anonymous context
// (a list of rule mappings rather than scalars).
func decodeContextRefs(node *yaml.Node) ([]syntax.SourceContextRef, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		var name string
		if err := node.Decode(&name); err != nil {
			return nil, err
		}
		return []syntax.SourceContextRef{{Name: name}}, nil

	case yaml.SequenceNode:
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.MappingNode {
			var rules []yamlRule
			if err := node.Decode(&rules); err != nil {
				return nil, err
			}
			converted, err := convertRules(rules)
			if err != nil {
				return nil, err
			}
			return []syntax.SourceContextRef{{Inline: converted}}, nil
		}
		var names []string
		if err := node.Decode(&names); err != nil {
			return nil, err
		}
		refs := make([]syntax.SourceContextRef, len(names))
		for i, n := range names {
			refs[i] = syntax.SourceContextRef{Name: n}
		}
		return refs, nil

	default:
		return nil, fmt.Errorf("unsupported node kind %v", node.Kind)
	}
}

// decodePop resolves "pop: true" (pop one frame) or "pop: 2" (pop two).
func decodePop(node *yaml.Node) (int, error) {
	if node.Kind == 0 {
		return 0, nil
	}
	var n int
	if err := node.Decode(&n); err == nil {
		return n, nil
	}
	var b bool
	if err := node.Decode(&b); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("expected bool or int, got %v", node.Kind)
}

// decodeClearScopes resolves "clear_scopes: true" (clear everything) or
// "clear_scopes: 2" (clear the top two), matching syntax.SourceRule's
// ClearScopes convention: nil means no clear, negative means clear all.
func decodeClearScopes(node *yaml.Node) (*int, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	var n int
	if err := node.Decode(&n); err == nil {
		return &n, nil
	}
	var b bool
	if err := node.Decode(&b); err == nil {
		if !b {
			return nil, nil
		}
		all := -1
		return &all, nil
	}
	return nil, fmt.Errorf("expected bool or int, got %v", node.Kind)
}

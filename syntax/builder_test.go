package syntax

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mainOnly(rules ...SourceRule) map[string][]SourceRule {
	return map[string][]SourceRule{"main": rules}
}

func TestLinkSimpleGrammar(t *testing.T) {
	b := NewBuilder()
	b.Add(&SourceSyntax{
		Name:           "Test",
		Scope:          "source.test",
		FileExtensions: []string{"tst"},
		Contexts: mainOnly(SourceRule{
			Match: `\d+`,
			Scope: "constant.numeric.test",
		}),
	})

	set, err := b.Link(context.Background())
	require.NoError(t, err)

	def := set.Definition("source.test")
	require.NotNil(t, def)
	assert.Equal(t, []string{"tst"}, def.FileExtensions)

	main := set.Context(def.Contexts["main"])
	require.Len(t, main.Patterns, 1)
	assert.Equal(t, `\d+`, main.Patterns[0].Source)
}

func TestLinkUnresolvedReferenceFallsBackToPlainText(t *testing.T) {
	b := NewBuilder()
	b.Add(&SourceSyntax{
		Scope: "source.test",
		Contexts: mainOnly(SourceRule{
			Match: `x`,
			Push:  []SourceContextRef{{Name: "does-not-exist"}},
		}),
	})

	set, err := b.Link(context.Background())
	require.NoError(t, err)
	def := set.Definition("source.test")
	main := set.Context(def.Contexts["main"])
	target := main.Patterns[0].Action.Targets[0]
	assert.Equal(t, "", set.Context(target).Name)
}

func TestLinkStrictModeRejectsUnresolvedReference(t *testing.T) {
	b := NewBuilder(WithStrictReferences(true))
	b.Add(&SourceSyntax{
		Scope: "source.test",
		Contexts: mainOnly(SourceRule{
			Match: `x`,
			Push:  []SourceContextRef{{Name: "does-not-exist"}},
		}),
	})

	_, err := b.Link(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedReference))
}

func TestLinkCyclicIncludesDontDeadlock(t *testing.T) {
	b := NewBuilder()
	b.Add(&SourceSyntax{
		Scope: "source.test",
		Contexts: map[string][]SourceRule{
			"main": {
				{Include: "other"},
				{Match: `a`, Scope: "keyword.a"},
			},
			"other": {
				{Include: "main"},
				{Match: `b`, Scope: "keyword.b"},
			},
		},
	})

	set, err := b.Link(context.Background())
	require.NoError(t, err)
	def := set.Definition("source.test")
	main := set.Context(def.Contexts["main"])
	// main: [other's patterns flattened in (minus its own cyclic include back
	// to main, broken by the visiting-set guard), then main's own `a` rule]
	var sources []string
	for _, p := range main.Patterns {
		sources = append(sources, p.Source)
	}
	assert.Contains(t, sources, "a")
	assert.Contains(t, sources, "b")
}

func TestLinkCrossGrammarReference(t *testing.T) {
	b := NewBuilder()
	b.Add(&SourceSyntax{
		Scope: "source.host",
		Contexts: mainOnly(SourceRule{
			Match: `<`,
			Embed: &SourceContextRef{Name: "source.guest"},
			Escape: ">",
		}),
	})
	b.Add(&SourceSyntax{
		Scope: "source.guest",
		Contexts: mainOnly(SourceRule{
			Match: `\w+`,
			Scope: "entity.name.guest",
		}),
	})

	set, err := b.Link(context.Background())
	require.NoError(t, err)
	host := set.Definition("source.host")
	main := set.Context(host.Contexts["main"])
	require.Len(t, main.Patterns, 1)
	assert.Equal(t, ActionEmbed, main.Patterns[0].Action.Kind)

	guest := set.Definition("source.guest")
	embedded := set.Context(main.Patterns[0].Action.Embedded)
	assert.Equal(t, guest.Contexts["main"], embedded.Id())
}

func TestLinkMetaScopeAndClearScopes(t *testing.T) {
	allClear := -1
	b := NewBuilder()
	b.Add(&SourceSyntax{
		Scope: "source.test",
		Contexts: map[string][]SourceRule{
			"main": {
				{MetaScope: "meta.test"},
				{ClearScopes: &allClear},
				{Match: `x`},
			},
		},
	})
	set, err := b.Link(context.Background())
	require.NoError(t, err)
	def := set.Definition("source.test")
	main := set.Context(def.Contexts["main"])
	require.Len(t, main.MetaScope, 1)
	assert.Equal(t, "meta.test", main.MetaScope[0].String())
	require.NotNil(t, main.ClearScopes)
	assert.True(t, main.ClearScopes.All)
	require.Len(t, main.Patterns, 1)
}

func TestLinkMalformedRuleRejected(t *testing.T) {
	b := NewBuilder()
	b.Add(&SourceSyntax{
		Scope: "source.test",
		Contexts: mainOnly(SourceRule{
			Match: `x`,
			Push:  []SourceContextRef{{Name: "main"}},
			Set:   []SourceContextRef{{Name: "main"}},
		}),
	})
	_, err := b.Link(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGrammarRule))
}

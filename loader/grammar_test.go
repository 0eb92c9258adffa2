package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSyntax = `
name: Test
file_extensions: [tst]
scope: source.test
contexts:
  main:
    - match: '\bfunc\b'
      scope: keyword.control.test
      push: after-func
  after-func:
    - match: '\('
      push:
        - match: '\)'
          pop: true
    - match: ''
      pop: true
`

func TestParseSyntax(t *testing.T) {
	g, err := ParseSyntax([]byte(sampleSyntax))
	require.NoError(t, err)
	assert.Equal(t, "Test", g.Name)
	assert.Equal(t, []string{"tst"}, g.FileExtensions)
	assert.Equal(t, "source.test", g.Scope)

	main, ok := g.Contexts["main"]
	require.True(t, ok)
	require.Len(t, main, 1)
	assert.Equal(t, `\bfunc\b`, main[0].Match)
	assert.Equal(t, "keyword.control.test", main[0].Scope)
	require.Len(t, main[0].Push, 1)
	assert.Equal(t, "after-func", main[0].Push[0].Name)

	after, ok := g.Contexts["after-func"]
	require.True(t, ok)
	require.Len(t, after, 2)
	require.Len(t, after[0].Push, 1)
	assert.Empty(t, after[0].Push[0].Name)
	require.Len(t, after[0].Push[0].Inline, 1)
	assert.Equal(t, 1, after[0].Push[0].Inline[0].Pop)
	assert.Equal(t, 1, after[1].Pop)
}

func TestDecodeClearScopesAll(t *testing.T) {
	g, err := ParseSyntax([]byte(`
name: Test
scope: source.test
contexts:
  main:
    - match: 'x'
      clear_scopes: true
    - match: 'y'
      clear_scopes: 2
`))
	require.NoError(t, err)
	main := g.Contexts["main"]
	require.Len(t, main, 2)
	require.NotNil(t, main[0].ClearScopes)
	assert.Less(t, *main[0].ClearScopes, 0)
	require.NotNil(t, main[1].ClearScopes)
	assert.Equal(t, 2, *main[1].ClearScopes)
}

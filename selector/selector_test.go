package selector

import (
	"testing"

	"github.com/friedelschoen/highlight/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathMatchPrefixScore(t *testing.T) {
	stack := scope.MustBuild("source.js meta.function")

	source := Path{scope.MustParseScope("source")}
	sc, ok := source.Match(stack)
	require.True(t, ok)
	assert.Equal(t, 1, sc.MatchedAtoms)
	assert.Equal(t, 0, sc.StackIndex)

	sourceJS := Path{scope.MustParseScope("source.js")}
	sc2, ok := sourceJS.Match(stack)
	require.True(t, ok)
	assert.Equal(t, 2, sc2.MatchedAtoms)
	assert.True(t, sc.Less(sc2), "more specific selector must score higher")
}

func TestPathMatchOrderPreserved(t *testing.T) {
	stack := scope.MustBuild("source.js meta.function string.quoted")
	path := Path{scope.MustParseScope("meta.function"), scope.MustParseScope("source.js")}
	_, ok := path.Match(stack)
	assert.False(t, ok, "path elements must match in order, not any order")
}

func TestParseAndOrNot(t *testing.T) {
	sel, err := ParseScopeSelectors("source.js meta.function, source.python")
	require.NoError(t, err)

	jsStack := scope.MustBuild("source.js meta.function")
	_, ok := sel.Match(jsStack)
	assert.True(t, ok)

	pyStack := scope.MustBuild("source.python")
	_, ok = sel.Match(pyStack)
	assert.True(t, ok)

	rbStack := scope.MustBuild("source.ruby")
	_, ok = sel.Match(rbStack)
	assert.False(t, ok)
}

func TestParseDiff(t *testing.T) {
	sel, err := ParseScopeSelectors("source.js - string")
	require.NoError(t, err)

	plain := scope.MustBuild("source.js meta.function")
	_, ok := sel.Match(plain)
	assert.True(t, ok)

	inString := scope.MustBuild("source.js string.quoted")
	_, ok = sel.Match(inString)
	assert.False(t, ok, "the `- string` exclusion must suppress a match once string.* is on the stack")
}

func TestParseAndOperator(t *testing.T) {
	sel, err := ParseScopeSelectors("source.js & meta.function")
	require.NoError(t, err)

	both := scope.MustBuild("source.js meta.function")
	_, ok := sel.Match(both)
	assert.True(t, ok)

	onlyOne := scope.MustBuild("source.js")
	_, ok = sel.Match(onlyOne)
	assert.False(t, ok)
}

func TestLeadingAtomsPlainAlternatives(t *testing.T) {
	sel, err := ParseScopeSelectors("source.js meta.function, source.python")
	require.NoError(t, err)

	atoms, ok := sel.LeadingAtoms()
	require.True(t, ok)
	require.Len(t, atoms, 2)
	assert.Equal(t, "source.js", atoms[0].String())
	assert.Equal(t, "source.python", atoms[1].String())
}

func TestLeadingAtomsCompositeSelectorIsNotReducible(t *testing.T) {
	sel, err := ParseScopeSelectors("source.js - string")
	require.NoError(t, err)

	_, ok := sel.LeadingAtoms()
	assert.False(t, ok, "a diff selector can't be reduced to a single required leading atom")

	sel, err = ParseScopeSelectors("source.js & meta.function")
	require.NoError(t, err)
	_, ok = sel.LeadingAtoms()
	assert.False(t, ok, "an and selector can't be reduced to a single required leading atom")
}

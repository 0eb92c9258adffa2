package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScopeRoundTrip(t *testing.T) {
	for _, text := range []string{"", "source", "source.js", "source.js.meta.function.parameters.foo.bar.baz"} {
		s, err := ParseScope(text)
		require.NoError(t, err)
		assert.Equal(t, text, s.String())
	}
}

func TestParseScopeTooManyAtoms(t *testing.T) {
	_, err := ParseScope("a.b.c.d.e.f.g.h.i")
	assert.ErrorIs(t, err, ErrTooManyAtoms)

	_, err = ParseScope("a.b.c.d.e.f.g.h")
	assert.NoError(t, err)
}

func TestIsPrefixOf(t *testing.T) {
	a := MustParseScope("source")
	b := MustParseScope("source.js.meta.function")
	assert.True(t, a.IsPrefixOf(b))
	assert.False(t, b.IsPrefixOf(a))

	c := MustParseScope("source.python")
	assert.False(t, c.IsPrefixOf(b))

	eq := MustParseScope("source.js.meta.function")
	assert.True(t, eq.IsPrefixOf(b))
}

func TestEquality(t *testing.T) {
	a := MustParseScope("source.js")
	b := MustParseScope("source.js")
	c := MustParseScope("source.py")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestStackApplyAndRestore(t *testing.T) {
	st := NewStack()
	require.NoError(t, st.Apply(Push(MustParseScope("source.js")), nil))
	require.NoError(t, st.Apply(Push(MustParseScope("meta.function")), nil))
	assert.Equal(t, 2, st.Len())

	fresh := NewStack()
	fresh.Apply(Push(st.At(0)), nil)
	fresh.Apply(Push(st.At(1)), nil)
	assert.Equal(t, fresh.Hash(), st.Hash(), "running hash must match a freshly recomputed hash")

	require.NoError(t, st.Apply(Clear(ClearAll()), nil))
	assert.Equal(t, 0, st.Len())
	require.NoError(t, st.Apply(Restore(), nil))
	assert.Equal(t, 2, st.Len())
	assert.True(t, st.Equal(fresh))
}

func TestStackUnderflow(t *testing.T) {
	st := NewStack()
	err := st.Apply(Pop(1), nil)
	assert.ErrorIs(t, err, ErrStackUnderflow)
}

func TestRestoreWithoutClear(t *testing.T) {
	st := NewStack()
	err := st.Apply(Restore(), nil)
	assert.ErrorIs(t, err, ErrNoMatchingClear)
}

func TestBuild(t *testing.T) {
	st := MustBuild("source.js meta.function.parameters")
	require.Equal(t, 2, st.Len())
	assert.Equal(t, "source.js", st.At(0).String())
	assert.Equal(t, "meta.function.parameters", st.At(1).String())
}

func TestFirstAtom(t *testing.T) {
	a := MustParseScope("source.js.meta")
	b := MustParseScope("source.python")
	assert.Equal(t, a.at(0), a.FirstAtom())
	assert.Equal(t, a.FirstAtom(), b.FirstAtom(), "both scopes share the `source` leading atom")

	assert.Equal(t, uint16(0), Empty.FirstAtom())
}

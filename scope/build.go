package scope

import "strings"

// Build parses a space-separated list of dotted scope names (e.g.
// "source.js meta.function.js") into a fresh Stack, pushing each scope in
// order. This is the incremental-construction helper promised for theme and
// selector tests and for the loader boundary.
func Build(text string) (*Stack, error) {
	st := NewStack()
	for _, part := range strings.Fields(text) {
		sc, err := ParseScope(part)
		if err != nil {
			return nil, err
		}
		if err := st.Apply(Push(sc), nil); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// MustBuild is Build but panics on error.
func MustBuild(text string) *Stack {
	st, err := Build(text)
	if err != nil {
		panic("scope: MustBuild(" + text + "): " + err.Error())
	}
	return st
}

// Package selector implements scope-selector matching against a live
// ScopeStack (§4.B): the mechanism shared by theme rule application and
// syntax context includes/excludes.
package selector

import "github.com/friedelschoen/highlight/scope"

// Score is the priority a matched selector contributes, used to break ties
// between competing theme rules or context rules. Larger compares as
// higher priority, exactly per §4.B:
//  1. MatchedAtoms  - sum of atom counts of matched selector scopes
//  2. ExcludedAtoms - atoms excluded by negative (`-`) selectors, as a tie-break
//  3. StackIndex    - index of the deepest stack frame matched (bigger == more specific)
type Score struct {
	MatchedAtoms  int
	ExcludedAtoms int
	StackIndex    int
}

// Less reports whether s scores lower priority than other.
func (s Score) Less(other Score) bool {
	if s.MatchedAtoms != other.MatchedAtoms {
		return s.MatchedAtoms < other.MatchedAtoms
	}
	if s.ExcludedAtoms != other.ExcludedAtoms {
		return s.ExcludedAtoms < other.ExcludedAtoms
	}
	return s.StackIndex < other.StackIndex
}

// Path is a single conjunctive selector: an ordered sequence of scopes that
// must appear, in order, as a (non-contiguous) subsequence of the stack,
// each a prefix-match of its corresponding stack frame.
type Path []scope.Scope

// Match scans stack from the bottom, greedily taking the earliest
// frame that prefix-matches each successive element of the path. Returns
// (Score, true) on a full match of every element, or (Score{}, false) if
// any element cannot be matched before the stack is exhausted.
func (p Path) Match(stack *scope.Stack) (Score, bool) {
	if len(p) == 0 {
		return Score{}, true
	}
	cursor := 0
	var matchedAtoms int
	lastIdx := -1
	for _, want := range p {
		found := -1
		for idx := cursor; idx < stack.Len(); idx++ {
			if want.IsPrefixOf(stack.At(idx)) {
				found = idx
				break
			}
		}
		if found == -1 {
			return Score{}, false
		}
		matchedAtoms += want.Len()
		lastIdx = found
		cursor = found + 1
	}
	return Score{MatchedAtoms: matchedAtoms, StackIndex: lastIdx}, true
}

func atomCount(p Path) int {
	n := 0
	for _, s := range p {
		n += s.Len()
	}
	return n
}

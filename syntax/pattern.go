package syntax

import (
	"sync"
	"sync/atomic"

	"github.com/friedelschoen/highlight/regex"
	"github.com/friedelschoen/highlight/scope"
)

// MatchPattern is an individual grammar rule: a regex source, captures, and
// an Action (§3, §4.D). It is owned by the SyntaxSet arena and shared
// read-only across any number of ParseStates.
type MatchPattern struct {
	Source      string
	HasBackrefs bool

	// Scope is the rule's own outer scope (TextMate "name"/Sublime
	// "scope"), pushed for the full matched span and popped again once
	// the match is consumed (§4.E.2.e).
	Scope []scope.Scope

	// Captures maps capture-group index (0 is the whole match and is
	// never separately scoped) to the scopes pushed for that capture's
	// span.
	Captures map[int][]scope.Scope

	Action Action

	// WithPrototype is the overlay context this rule's Push/Set/Embed
	// frames carry, or InvalidContextId for none (§4.E "Prototypes").
	WithPrototype ContextId

	// compiled caches the non-backreference compile result behind a
	// one-shot, CAS-guarded pointer: concurrent first use may compile the
	// pattern redundantly, but only one compiled Regexp is ultimately
	// kept and visible to every caller thereafter (§5, §9).
	compiled atomic.Pointer[regex.Regexp]

	// backrefCompiled memoizes compiles of a backreference-dependent
	// template per (pattern, ancestor-captures) hash (§4.E, §9).
	backrefCompiled sync.Map // string -> *regex.Regexp
}

// regexFor returns the compiled regex to use for this pattern. For
// backreference-free patterns that is the single shared compile; for
// templates containing \N / \k<name>, the template is first interpolated
// against the ancestor frame's capture ranges and compiled on demand,
// deferred until that ancestor match is known (§4.E, §9).
func (p *MatchPattern) regexFor(ancestorText string, ancestorMatch *regex.Match) (*regex.Regexp, error) {
	if !p.HasBackrefs {
		if r := p.compiled.Load(); r != nil {
			return r, nil
		}
		r, err := regex.Compile(p.Source, 0)
		if err != nil {
			return nil, err
		}
		if !p.compiled.CompareAndSwap(nil, r) {
			r.Free()
			r = p.compiled.Load()
		}
		return r, nil
	}

	key := regex.TemplateHash(p.Source, ancestorMatch)
	if v, ok := p.backrefCompiled.Load(key); ok {
		return v.(*regex.Regexp), nil
	}
	interpolated := regex.Interpolate(p.Source, ancestorText, ancestorMatch)
	r, err := regex.Compile(interpolated, 0)
	if err != nil {
		return nil, err
	}
	if actual, loaded := p.backrefCompiled.LoadOrStore(key, r); loaded {
		r.Free()
		return actual.(*regex.Regexp), nil
	}
	return r, nil
}

// find performs a single, uncached search of the pattern's compiled regex
// against text starting at or after pos. It does not consult or update any
// per-line cache; callers needing §4.D's memoization go through
// ParseState.findMatch instead. Kept for uses (e.g. first_line_match) that
// only ever search once.
func (p *MatchPattern) find(text string, pos int) (*regex.Match, error) {
	re, err := p.regexFor(text, nil)
	if err != nil {
		return nil, err
	}
	return re.Find(text, pos, len(text), 0)
}

// matchCacheEntry is the "most-recent-search" record of §4.D, owned by a
// single ParseState (never shared, §5) and keyed by the MatchPattern's
// stable pointer identity within the arena.
type matchCacheEntry struct {
	lineID     int64
	start      int
	hasResult  bool
	match      *regex.Match // nil means "no match found from `start` onward"
}

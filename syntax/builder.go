package syntax

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/friedelschoen/highlight/scope"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// backrefSyntax detects \N / \k<name> placeholders in an *uncompiled*
// pattern source, so the builder can defer compilation of such patterns
// until an ancestor frame's captures are known (§4.E, §9).
var backrefSyntax = regexp.MustCompile(`\\(\d+)|\\k[<']`)

func hasBackrefs(src string) bool { return backrefSyntax.MatchString(src) }

// HasBackrefs reports whether src contains a \N or \k<name> backreference
// placeholder, exported for callers (e.g. the dump package) reconstructing
// a MatchPattern from a serialized regex source.
func HasBackrefs(src string) bool { return hasBackrefs(src) }

// NewSimpleMatchPattern compiles source as a standalone, backreference-free
// pattern with no scope, captures, or action - the shape first_line_match
// uses. Exported for the dump package, whose deserialized SyntaxDefinition
// needs to rebuild the same kind of pattern compileSimplePattern produces
// during a fresh Builder.Link.
func NewSimpleMatchPattern(source string) (*MatchPattern, error) {
	return compileSimplePattern(source)
}

// BuildOption configures a Builder.
type BuildOption func(*Builder)

// WithLogger attaches a logger used during linking (missing prototypes,
// unresolved references resolved to the Plain Text fallback, etc.).
func WithLogger(l *zap.Logger) BuildOption { return func(b *Builder) { b.logger = l } }

// WithStrictReferences makes an unresolved named context reference a fatal
// ErrUnresolvedReference instead of the default "Plain Text" fallback
// (§4.C "unknown references become a Plain Text fallback rather than a
// build failure").
func WithStrictReferences(strict bool) BuildOption { return func(b *Builder) { b.strict = strict } }

// Builder accumulates SourceSyntax grammars and links them into an
// immutable *SyntaxSet (§3 "SyntaxSet (arena)").
type Builder struct {
	logger   *zap.Logger
	strict   bool
	grammars []*SourceSyntax
}

// NewBuilder creates an empty Builder.
func NewBuilder(opts ...BuildOption) *Builder {
	b := &Builder{logger: zap.NewNop()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Add registers a decoded grammar to be linked. Grammars may reference each
// other by scope name (embeds, $base); order of addition does not matter.
func (b *Builder) Add(g *SourceSyntax) { b.grammars = append(b.grammars, g) }

// pendingGrammar tracks a grammar mid-link: its named contexts have
// reserved ids (so cyclic references resolve) before any rule is compiled.
type pendingGrammar struct {
	src   *SourceSyntax
	named map[string]ContextId
}

// ruleEntry is one position in a context's not-yet-flattened rule list:
// either a compiled match rule, or a reference to splice another context's
// rules in at this position (an `include`). Keeping includes as a
// reference instead of eagerly copying Patterns at compile time avoids a
// build-order dependency between whichever context happens to compile
// first (§9 "Cyclic grammar references" applies to includes too, not just
// push/set targets).
type ruleEntry struct {
	pattern *MatchPattern
	include ContextId // valid when pattern == nil
}

// entryTable collects every context's unflattened rule list across all
// grammars, guarded by a mutex since multiple grammars compile
// concurrently in Link's phase 2.
type entryTable struct {
	mu      sync.Mutex
	entries map[ContextId][]ruleEntry
}

func (t *entryTable) set(id ContextId, entries []ruleEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = entries
}

// Link resolves every named ContextRef to a ContextId exactly once and
// returns the resulting immutable SyntaxSet (§3, §4.C). Grammar bodies are
// compiled concurrently via errgroup once every grammar's named contexts
// have reserved arena slots, since cross-grammar references and includes
// only need the *id* to exist during compilation; actual rule lists are
// flattened in a final single-threaded pass once every context exists.
func (b *Builder) Link(ctx context.Context) (*SyntaxSet, error) {
	set := &SyntaxSet{
		defs:  make(map[string]*SyntaxDefinition),
		byExt: make(map[string][]*SyntaxDefinition),
	}
	pendings := make(map[string]*pendingGrammar, len(b.grammars))
	entries := &entryTable{entries: make(map[ContextId][]ruleEntry)}

	// Phase 1: reserve a ContextId (placeholder *Context) for every named
	// context, including "prototype" if declared, across all grammars
	// before any regex compilation happens. This is what lets context A
	// include context B which includes A.
	for _, g := range b.grammars {
		pg := &pendingGrammar{src: g, named: make(map[string]ContextId)}
		for name := range g.Contexts {
			pg.named[name] = set.reserve(name)
		}
		pendings[g.Scope] = pg

		def := &SyntaxDefinition{
			Name:                 g.Name,
			FileExtensions:       g.FileExtensions,
			HiddenFileExtensions: g.HiddenFileExtensions,
			Contexts:             pg.named,
			Prototype:            InvalidContextId,
		}
		if sc, err := scope.ParseScope(g.Scope); err == nil {
			def.Scope = sc
		}
		if id, ok := pg.named["prototype"]; ok {
			def.Prototype = id
		}
		set.defs[g.Scope] = def
		for _, ext := range g.FileExtensions {
			set.byExt[ext] = append(set.byExt[ext], def)
		}
	}

	plainText := set.reserve("")
	set.contexts[plainText].IncludePrototype = false

	// Phase 2: compile each grammar's contexts concurrently; cross-grammar
	// references and includes resolve through `pendings`/`entries`, whose
	// ids are already final even though rule lists aren't flattened yet.
	grp, _ := errgroup.WithContext(ctx)
	for _, g := range b.grammars {
		g := g
		pg := pendings[g.Scope]
		grp.Go(func() error {
			lb := &linkBuilder{set: set, entries: entries, pendings: pendings, self: pg, strict: b.strict, plainText: plainText, logger: b.logger}
			return lb.compileGrammarContexts()
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	// Phase 3: flatten every context's rule list now that every context
	// (including anonymous with_prototype/inline ones created mid-phase-2)
	// has an entry in `entries`. Recursive with a visiting-set cycle guard:
	// an include leading back to a context already being expanded on the
	// current path is skipped (§9), so each context gets every pattern
	// reachable through its includes except those cyclic repeats, whatever
	// order the contexts are flattened in.
	flattener := &flattener{set: set, entries: entries.entries, visiting: make(map[ContextId]bool), done: make(map[ContextId]bool)}
	for id := range entries.entries {
		flattener.flatten(id)
	}

	// Phase 4: first-line regexes, which don't participate in cycles.
	for _, g := range b.grammars {
		def := set.defs[g.Scope]
		if g.FirstLineMatch != "" {
			re, err := compileSimplePattern(g.FirstLineMatch)
			if err != nil {
				return nil, &RegexCompileError{Context: g.Name, Source: g.FirstLineMatch, Err: err}
			}
			def.FirstLineMatch = re
		}
	}

	return set, nil
}

type flattener struct {
	set      *SyntaxSet
	entries  map[ContextId][]ruleEntry
	visiting map[ContextId]bool
	done     map[ContextId]bool
}

// flatten returns id's expanded pattern list and whether a cycle was cut
// while building it. A cut result depends on the current include path, so
// it is stored only for the top-level call and never reused by others.
func (f *flattener) flatten(id ContextId) ([]*MatchPattern, bool) {
	if f.done[id] {
		return f.set.contexts[id].Patterns, false
	}
	if f.visiting[id] {
		return nil, true
	}
	top := len(f.visiting) == 0
	f.visiting[id] = true
	list := f.entries[id]
	out := make([]*MatchPattern, 0, len(list))
	cut := false
	for _, e := range list {
		if e.pattern != nil {
			out = append(out, e.pattern)
		} else {
			inc, incCut := f.flatten(e.include)
			out = append(out, inc...)
			cut = cut || incCut
		}
	}
	delete(f.visiting, id)
	if !cut {
		f.done[id] = true
	}
	if !cut || top {
		f.set.contexts[id].Patterns = out
	}
	return out, cut
}

// reserve appends a placeholder Context to the arena and returns its id.
// Only called from Link's single-threaded phase 1/2 setup or under
// SyntaxSet.buildMu from append, so no locking is needed here.
func (s *SyntaxSet) reserve(name string) ContextId {
	id := ContextId(len(s.contexts))
	s.contexts = append(s.contexts, &Context{id: id, Name: name, IncludePrototype: true})
	return id
}

// append adds an anonymous Context (inline rule list, with_prototype
// overlay) created mid-compile by one of several concurrently running
// grammar goroutines.
func (s *SyntaxSet) append(ctx *Context) ContextId {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	id := ContextId(len(s.contexts))
	ctx.id = id
	s.contexts = append(s.contexts, ctx)
	return id
}

func compileSimplePattern(source string) (*MatchPattern, error) {
	p := &MatchPattern{Source: source, HasBackrefs: hasBackrefs(source), WithPrototype: InvalidContextId}
	if _, err := p.regexFor(source, nil); err != nil {
		return nil, err
	}
	return p, nil
}

// linkBuilder compiles the rule bodies of a single grammar; one exists per
// grammar per Link call so the errgroup stage above can run them
// concurrently. Shared mutable state (entries, the arena's contexts slice)
// goes through entryTable/SyntaxSet.buildMu respectively.
type linkBuilder struct {
	set       *SyntaxSet
	entries   *entryTable
	pendings  map[string]*pendingGrammar
	self      *pendingGrammar
	strict    bool
	plainText ContextId
	logger    *zap.Logger
}

func (lb *linkBuilder) compileGrammarContexts() error {
	for name, rules := range lb.self.src.Contexts {
		id := lb.self.named[name]
		ctx, list, err := lb.compileContext(name, rules)
		if err != nil {
			return err
		}
		ctx.id = id
		lb.set.buildMu.Lock()
		lb.set.contexts[id] = ctx
		lb.set.buildMu.Unlock()
		lb.entries.set(id, list)
	}
	return nil
}

func (lb *linkBuilder) compileContext(name string, rules []SourceRule) (*Context, []ruleEntry, error) {
	ctx := &Context{Name: name, IncludePrototype: true}
	var list []ruleEntry
	for _, r := range rules {
		if isMetaOnly(r) {
			if r.MetaScope != "" {
				sc, err := parseScopeList(r.MetaScope)
				if err != nil {
					return nil, nil, err
				}
				ctx.MetaScope = sc
			}
			if r.MetaContentScope != "" {
				sc, err := parseScopeList(r.MetaContentScope)
				if err != nil {
					return nil, nil, err
				}
				ctx.MetaContentScope = sc
			}
			if r.MetaIncludePrototype != nil {
				ctx.IncludePrototype = *r.MetaIncludePrototype
			}
			if r.ClearScopes != nil {
				amount := scope.ClearTopN(*r.ClearScopes)
				if *r.ClearScopes < 0 {
					amount = scope.ClearAll()
				}
				ctx.ClearScopes = &amount
			}
			continue
		}
		if r.Include != "" {
			target, err := lb.resolveRef(SourceContextRef{Name: r.Include})
			if err != nil {
				return nil, nil, err
			}
			list = append(list, ruleEntry{include: target})
			continue
		}
		pat, err := lb.compileRule(name, r)
		if err != nil {
			return nil, nil, err
		}
		if pat != nil {
			list = append(list, ruleEntry{pattern: pat})
		}
	}
	return ctx, list, nil
}

func isMetaOnly(r SourceRule) bool {
	return r.Match == "" && r.Include == "" && r.Embed == nil &&
		(r.MetaScope != "" || r.MetaContentScope != "" || r.MetaIncludePrototype != nil || r.ClearScopes != nil)
}

func (lb *linkBuilder) compileRule(ctxName string, r SourceRule) (*MatchPattern, error) {
	hasPush, hasSet, hasPop, hasEmbed := len(r.Push) > 0, len(r.Set) > 0, r.Pop > 0, r.Embed != nil

	if countTrue(hasPush, hasSet, hasPop, hasEmbed) > 1 {
		return nil, fmt.Errorf("%w: context %q: a rule may only use one of push/set/pop/embed", ErrGrammarRule, ctxName)
	}
	if r.Match == "" {
		return nil, nil
	}

	pat := &MatchPattern{Source: r.Match, HasBackrefs: hasBackrefs(r.Match), WithPrototype: InvalidContextId}
	if r.Scope != "" {
		sc, err := parseScopeList(r.Scope)
		if err != nil {
			return nil, err
		}
		pat.Scope = sc
	}
	if len(r.Captures) > 0 {
		caps, err := parseCaptureMap(r.Captures)
		if err != nil {
			return nil, err
		}
		pat.Captures = caps
	}
	if len(r.WithPrototype) > 0 {
		overlay, list, err := lb.compileContext("", r.WithPrototype)
		if err != nil {
			return nil, err
		}
		id := lb.set.append(overlay)
		lb.entries.set(id, list)
		pat.WithPrototype = id
	}

	switch {
	case hasPush:
		ids, err := lb.resolveRefs(r.Push)
		if err != nil {
			return nil, err
		}
		pat.Action = Action{Kind: ActionPush, Targets: ids}
	case hasSet:
		ids, err := lb.resolveRefs(r.Set)
		if err != nil {
			return nil, err
		}
		pat.Action = Action{Kind: ActionSet, Targets: ids}
	case hasPop:
		pat.Action = Action{Kind: ActionPop, PopCount: r.Pop}
	case hasEmbed:
		embedded, err := lb.resolveRef(*r.Embed)
		if err != nil {
			return nil, err
		}
		escapeCaps, err := parseCaptureMap(r.EscapeCaptures)
		if err != nil {
			return nil, err
		}
		escape := &MatchPattern{
			Source:        r.Escape,
			HasBackrefs:   hasBackrefs(r.Escape),
			Captures:      escapeCaps,
			WithPrototype: InvalidContextId,
			Action:        Action{Kind: ActionPop, PopCount: 1},
		}
		var embedScope scope.Scope
		if r.EmbedScope != "" {
			if sc, err := scope.ParseScope(r.EmbedScope); err == nil {
				embedScope = sc
			}
		}
		pat.Action = Action{Kind: ActionEmbed, Embedded: embedded, Escape: escape, EmbedScope: embedScope}
	}
	return pat, nil
}

func countTrue(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

func parseScopeList(text string) ([]scope.Scope, error) {
	var out []scope.Scope
	for _, part := range splitFields(text) {
		sc, err := scope.ParseScope(part)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func splitFields(text string) []string {
	var out []string
	start := -1
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != ' ' {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			out = append(out, text[start:i])
			start = -1
		}
	}
	return out
}

func parseCaptureMap(m map[int]string) (map[int][]scope.Scope, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[int][]scope.Scope, len(m))
	for idx, text := range m {
		sc, err := parseScopeList(text)
		if err != nil {
			return nil, err
		}
		out[idx] = sc
	}
	return out, nil
}

func (lb *linkBuilder) resolveRefs(refs []SourceContextRef) ([]ContextId, error) {
	out := make([]ContextId, 0, len(refs))
	for _, r := range refs {
		id, err := lb.resolveRef(r)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// resolveRef resolves one SourceContextRef to a ContextId, per §4.C:
// unknown references fall back to the shared Plain Text context rather
// than failing the build, unless the Builder was constructed with
// WithStrictReferences, in which case they return ErrUnresolvedReference.
func (lb *linkBuilder) resolveRef(ref SourceContextRef) (ContextId, error) {
	if len(ref.Inline) > 0 {
		ctx, list, err := lb.compileContext("", ref.Inline)
		if err != nil {
			lb.logger.Warn("inline context failed to compile, falling back to Plain Text", zap.Error(err))
			return lb.plainText, nil
		}
		id := lb.set.append(ctx)
		lb.entries.set(id, list)
		return id, nil
	}

	name := ref.Name
	switch name {
	case "$self", "$base", "":
		if id, ok := lb.self.named["main"]; ok {
			return id, nil
		}
		return lb.plainText, nil
	}

	if idx := indexByte(name, '#'); idx >= 0 {
		grammarScope, ctxName := name[:idx], name[idx+1:]
		if pg, ok := lb.pendings[grammarScope]; ok {
			if id, ok := pg.named[ctxName]; ok {
				return id, nil
			}
		}
		return lb.missing(name)
	}

	if id, ok := lb.self.named[name]; ok {
		return id, nil
	}
	if pg, ok := lb.pendings[name]; ok {
		if id, ok := pg.named["main"]; ok {
			return id, nil
		}
	}
	return lb.missing(name)
}

func (lb *linkBuilder) missing(name string) (ContextId, error) {
	if lb.strict {
		return InvalidContextId, fmt.Errorf("%w: %q", ErrUnresolvedReference, name)
	}
	lb.logger.Warn("unresolved context reference, falling back to Plain Text", zap.String("name", name))
	return lb.plainText, nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

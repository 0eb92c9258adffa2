package syntax

import (
	"sync"

	"github.com/friedelschoen/highlight/scope"
)

// ContextId is an opaque index into a SyntaxSet's Context arena (§3, §9
// "Cyclic grammar references"). ContextIds are only valid for the arena
// that produced them.
type ContextId int

// InvalidContextId marks an unresolved/absent reference.
const InvalidContextId ContextId = -1

// ActionKind discriminates the stack effect a MatchPattern performs on match.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionPush
	ActionSet
	ActionPop
	ActionEmbed
)

// Action is what a MatchPattern does to the context stack once it matches,
// per §3 MatchPattern.
type Action struct {
	Kind ActionKind

	// ActionPush / ActionSet
	Targets []ContextId

	// ActionPop
	PopCount int

	// ActionEmbed
	Embedded   ContextId
	EmbedScope scope.Scope   // pushed as the embedded content's outer scope, if any
	// Escape is compiled as an ordinary MatchPattern with Action{Kind: ActionPop,
	// PopCount: 1} and synthesized at the top of the embedded context's
	// effective pattern list (§9 "Embed semantics").
	Escape *MatchPattern
}

// Context is a node of the grammar state machine: an ordered list of rules
// plus meta-scopes, immutable after linking (§3).
type Context struct {
	id   ContextId
	Name string // empty for anonymous/inline contexts

	Patterns []*MatchPattern

	MetaScope        []scope.Scope
	MetaContentScope []scope.Scope

	// IncludePrototype controls whether this context's effective pattern
	// list is extended with the grammar's prototype context (§4.E
	// "Prototypes"). Defaults to true; corresponds to
	// meta_include_prototype: false turning it off.
	IncludePrototype bool

	// ClearScopes, if non-nil, is applied to the live ScopeStack when this
	// context is entered, before MetaScope is pushed (§3 "clear_scopes
	// behavior", §9 open question: this clears scope contributions only,
	// never the with_prototype overlay list).
	ClearScopes *scope.ClearAmount
}

func (c *Context) Id() ContextId { return c.id }

// SyntaxDefinition is a named grammar: file extensions, first-line regex,
// and a name -> ContextId mapping (§3).
type SyntaxDefinition struct {
	Name                 string
	Scope                scope.Scope
	FileExtensions       []string
	HiddenFileExtensions []string
	FirstLineMatch       *MatchPattern

	// Contexts maps context names declared in this grammar ("main",
	// "prototype", ...) to their arena ids.
	Contexts map[string]ContextId

	// Prototype is the grammar's own top-level prototype context, or
	// InvalidContextId if the grammar declares none. A missing *named*
	// reference to "prototype" from elsewhere resolves the same way
	// (§4.C "Missing named prototypes mark the including context as
	// having no prototype").
	Prototype ContextId
}

// SyntaxSet is the single-ownership arena of all Contexts across every
// linked SyntaxDefinition (§3, §9). It is immutable after Link and safe for
// concurrent reads from any number of goroutines (§5).
type SyntaxSet struct {
	contexts []*Context
	defs     map[string]*SyntaxDefinition // keyed by grammar scope name
	byExt    map[string][]*SyntaxDefinition

	// buildMu guards `contexts` growth while Builder.Link's phase 2
	// compiles grammars concurrently (inline/with_prototype contexts are
	// appended mid-compile from multiple goroutines). Never touched again
	// once Link returns: reads after that point are lock-free.
	buildMu sync.Mutex
}

// Context looks up a Context by id. Panics on an id this arena did not
// produce, mirroring the teacher's StackItem.Root() panic-on-invariant-
// violation style (arena ids are not meant to cross SyntaxSets).
func (s *SyntaxSet) Context(id ContextId) *Context {
	if id < 0 || int(id) >= len(s.contexts) {
		panic("syntax: ContextId not owned by this SyntaxSet")
	}
	return s.contexts[id]
}

// Definition returns the named grammar, or nil if absent.
func (s *SyntaxSet) Definition(scopeName string) *SyntaxDefinition {
	return s.defs[scopeName]
}

// FindSyntaxByExtension returns every grammar registered under the given
// (dot-less) file extension, analogous to syntect's
// SyntaxSet::find_syntax_by_extension (§ "Supplemented features").
func (s *SyntaxSet) FindSyntaxByExtension(ext string) []*SyntaxDefinition {
	return s.byExt[ext]
}

// FindSyntaxByFirstLine scans every grammar's FirstLineMatch against line,
// returning the first one that matches, or nil.
func (s *SyntaxSet) FindSyntaxByFirstLine(line string) *SyntaxDefinition {
	for _, def := range s.defs {
		if def.FirstLineMatch == nil {
			continue
		}
		m, err := def.FirstLineMatch.find(line, 0)
		if err == nil && m != nil {
			return def
		}
	}
	return nil
}

// Definitions returns every linked grammar, for enumeration (e.g. the
// CLI's --list flag).
func (s *SyntaxSet) Definitions() []*SyntaxDefinition {
	out := make([]*SyntaxDefinition, 0, len(s.defs))
	for _, d := range s.defs {
		out = append(out, d)
	}
	return out
}

// NumContexts returns the number of arena slots, so a caller that wants to
// enumerate every Context (e.g. a serializer) can range over
// 0..NumContexts()-1 and call Context on each.
func (s *SyntaxSet) NumContexts() int { return len(s.contexts) }

// Rehydrate reconstructs a SyntaxSet from a flat context arena and its
// grammar definitions, for a package outside syntax that deserialized both
// from some external representation (§6 "dump format") and cannot set
// Context's unexported id field itself. contexts[i].id is set to i; the
// caller's dump format only needs to have preserved array order.
func Rehydrate(contexts []*Context, defs map[string]*SyntaxDefinition) *SyntaxSet {
	for i, c := range contexts {
		c.id = ContextId(i)
	}
	byExt := make(map[string][]*SyntaxDefinition)
	for _, d := range defs {
		for _, ext := range d.FileExtensions {
			byExt[ext] = append(byExt[ext], d)
		}
	}
	return &SyntaxSet{contexts: contexts, defs: defs, byExt: byExt}
}

package syntax

// This file defines the structured-value shape the core receives from the
// deserialization collaborator (§6): a decoded .sublime-syntax document.
// The loader package (outside core) is responsible for turning YAML into
// these types; the core never parses YAML itself.

// SourceSyntax mirrors a decoded .sublime-syntax document.
type SourceSyntax struct {
	Name                string
	FileExtensions      []string
	HiddenFileExtensions []string
	FirstLineMatch      string
	Scope               string
	Variables           map[string]string
	Contexts            map[string][]SourceRule
}

// SourceRule mirrors one rule entry within a context list. Only one of
// Match or Include should be set per TextMate/Sublime convention; Begin is
// not part of Sublime syntax (that's TextMate) but see NOTE below - Sublime
// contexts use nested `push`/`pop` instead of begin/end pairs, which this
// type represents directly via Push/Set/Pop/Include fields.
type SourceRule struct {
	Match               string
	Scope               string
	Captures            map[int]string
	Push                []SourceContextRef
	Set                 []SourceContextRef
	Pop                 int
	Include             string
	WithPrototype       []SourceRule
	MetaScope           string
	MetaContentScope    string
	MetaIncludePrototype *bool
	ClearScopes         *int // nil: no clear; <0: clear all; >=0: clear top N
	Embed               *SourceContextRef
	Escape              string
	EmbedScope          string
	EscapeCaptures      map[int]string
}

// SourceContextRef names a context either by a bare name within the same
// grammar ("main", "prototype"), a cross-grammar reference
// ("scope.name#context"), the special "$self"/"$base" names, or an inline
// anonymous context (a nested rule list with no stable name).
type SourceContextRef struct {
	Name   string
	Inline []SourceRule
}

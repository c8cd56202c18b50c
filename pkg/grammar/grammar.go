// Package grammar owns the tree-sitter parsers and compiled structural
// queries for the three language slots a workspace can hold.
package grammar

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"gitlab.com/tozd/go/errors"
)

// Language is the slot a file occupies in the syntax index.
type Language int

const (
	Markup Language = iota
	Script
	Backend
)

// NumLanguages is the number of language slots.
const NumLanguages = 3

func (l Language) String() string {
	switch l {
	case Markup:
		return "markup"
	case Script:
		return "script"
	case Backend:
		return "backend"
	default:
		return "unknown"
	}
}

// Valid reports whether l is one of the known slots.
func (l Language) Valid() bool {
	return l >= Markup && l <= Backend
}

// BackendKind selects the grammar used for the Backend slot.
type BackendKind string

const (
	BackendPython BackendKind = "python"
	BackendRust   BackendKind = "rust"
	BackendGo     BackendKind = "go"
)

var backends = map[BackendKind]struct {
	ext    string
	lang   func() *sitter.Language
	scopes []string
}{
	BackendPython: {ext: "py", lang: python.GetLanguage},
	BackendRust:   {ext: "rs", lang: rust.GetLanguage, scopes: []string{"function_item", "closure_expression"}},
	BackendGo:     {ext: "go", lang: golang.GetLanguage, scopes: []string{"function_declaration", "method_declaration", "func_literal"}},
}

var scriptScopes = []string{"function_declaration", "function", "function_expression", "arrow_function", "method_definition", "generator_function_declaration"}

// ScriptExtensions are the file extensions parsed with the script grammar.
var ScriptExtensions = []string{"js", "ts"}

var ErrLanguageUnavailable = errors.New("language unavailable")

// SupportedBackends lists the accepted values for the backend language.
func SupportedBackends() []string {
	return []string{string(BackendPython), string(BackendRust), string(BackendGo)}
}

// ParseBackend maps a configured name to a BackendKind.
func ParseBackend(name string) (BackendKind, error) {
	kind := BackendKind(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := backends[kind]; !ok {
		return "", errors.Errorf("backend language %q is not one of %s", name, strings.Join(SupportedBackends(), ", "))
	}
	return kind, nil
}

// Extension returns the file extension owned by the backend grammar.
func (b BackendKind) Extension() string {
	return backends[b].ext
}

type slot struct {
	lang   *sitter.Language
	parser *sitter.Parser
	anchor *sitter.Query
	scopes []string
	err    error
}

// Set holds one parser per language slot. A Set is not safe for concurrent
// use; callers serialize access (the workspace lock does).
type Set struct {
	backend BackendKind
	slots   [NumLanguages]slot

	name      *sitter.Query
	value     *sitter.Query
	reference *sitter.Query
}

// NewSet builds parsers for markup, script and the given backend. A slot whose
// queries fail to compile is kept but reports ErrLanguageUnavailable; only a
// broken markup slot fails construction.
func NewSet(backend BackendKind) (*Set, error) {
	def, ok := backends[backend]
	if !ok {
		return nil, errors.Errorf("unknown backend %q", backend)
	}

	s := &Set{backend: backend}

	s.slots[Markup] = newSlot(html.GetLanguage(), "", nil)
	if s.slots[Markup].err != nil {
		return nil, errors.Errorf("loading markup grammar: %w", s.slots[Markup].err)
	}

	var err error
	if s.name, err = compile("html_name.scm", s.slots[Markup].lang); err != nil {
		return nil, err
	}
	if s.value, err = compile("html_value.scm", s.slots[Markup].lang); err != nil {
		return nil, err
	}
	if s.reference, err = compile("html_reference.scm", s.slots[Markup].lang); err != nil {
		return nil, err
	}

	s.slots[Script] = newSlot(javascript.GetLanguage(), "javascript_anchor.scm", scriptScopes)
	s.slots[Backend] = newSlot(def.lang(), string(backend)+"_anchor.scm", def.scopes)

	return s, nil
}

func newSlot(lang *sitter.Language, anchorFile string, scopes []string) slot {
	sl := slot{lang: lang, scopes: scopes}
	if lang == nil {
		sl.err = ErrLanguageUnavailable
		return sl
	}
	sl.parser = sitter.NewParser()
	sl.parser.SetLanguage(lang)
	if anchorFile != "" {
		sl.anchor, sl.err = compile(anchorFile, lang)
	}
	return sl
}

// Backend returns the configured backend grammar.
func (s *Set) Backend() BackendKind {
	return s.backend
}

// Parse parses src for the given slot, reusing old as the incremental seed
// when it is non-nil.
func (s *Set) Parse(ctx context.Context, lang Language, old *sitter.Tree, src []byte) (*sitter.Tree, error) {
	if !lang.Valid() {
		return nil, errors.Errorf("parsing %s: %w", lang, ErrLanguageUnavailable)
	}
	sl := s.slots[lang]
	if sl.err != nil || sl.parser == nil {
		return nil, errors.Errorf("parsing %s: %w", lang, ErrLanguageUnavailable)
	}
	tree, err := sl.parser.ParseCtx(ctx, old, src)
	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", lang, err)
	}
	return tree, nil
}

// NameQuery matches directive attribute names in markup.
func (s *Set) NameQuery() *sitter.Query { return s.name }

// ValueQuery matches directive attribute values in markup.
func (s *Set) ValueQuery() *sitter.Query { return s.value }

// ReferenceQuery matches the tag reference attribute in markup.
func (s *Set) ReferenceQuery() *sitter.Query { return s.reference }

// AnchorQuery returns the anchor comment query for a script or backend slot
// along with the node kinds a comment must be nested in to count. An empty
// scope list means any comment counts.
func (s *Set) AnchorQuery(lang Language) (*sitter.Query, []string, error) {
	if lang != Script && lang != Backend {
		return nil, nil, errors.Errorf("no anchors for %s", lang)
	}
	sl := s.slots[lang]
	if sl.err != nil || sl.anchor == nil {
		return nil, nil, errors.Errorf("anchor query for %s: %w", lang, ErrLanguageUnavailable)
	}
	return sl.anchor, sl.scopes, nil
}

// Close releases the parsers and queries.
func (s *Set) Close() {
	for i := range s.slots {
		if s.slots[i].parser != nil {
			s.slots[i].parser.Close()
		}
		if s.slots[i].anchor != nil {
			s.slots[i].anchor.Close()
		}
	}
	for _, q := range []*sitter.Query{s.name, s.value, s.reference} {
		if q != nil {
			q.Close()
		}
	}
}

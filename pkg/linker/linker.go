// Package linker answers the cross-file questions that join markup reference
// attributes to anchor comments.
package linker

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/walteh/hxlsp/pkg/grammar"
	"github.com/walteh/hxlsp/pkg/position"
	"github.com/walteh/hxlsp/pkg/syntax"
	"github.com/walteh/hxlsp/pkg/tags"
)

const (
	DuplicateMessage = "This tag already exist."
	DiagnosticSource = "htmx-lsp"
)

// Queries is the compiled query surface the linker needs; *grammar.Set
// implements it.
type Queries interface {
	position.Queries
	ReferenceQuery() *sitter.Query
	AnchorQuery(lang grammar.Language) (*sitter.Query, []string, error)
}

// Location is a span in a file. End is exclusive.
type Location struct {
	URI   string
	Start sitter.Point
	End   sitter.Point
}

// Diagnostic is a duplicate tag warning at the losing location.
type Diagnostic struct {
	Start   sitter.Point
	End     sitter.Point
	Message string
}

// Linker reads a consistent view of the workspace. Callers hold the
// workspace lock for the lifetime of every call.
type Linker struct {
	registry *syntax.Registry
	trees    *syntax.Index
	tags     *tags.Index
	queries  Queries
}

func New(registry *syntax.Registry, trees *syntax.Index, idx *tags.Index, queries Queries) *Linker {
	return &Linker{registry: registry, trees: trees, tags: idx, queries: queries}
}

func (l *Linker) markup(file syntax.FileID) (*sitter.Node, []byte, bool) {
	tree, ok := l.trees.Tree(file, grammar.Markup)
	if !ok {
		return nil, nil, false
	}
	src, _ := l.trees.Source(file, grammar.Markup)
	return tree.RootNode(), src, true
}

// Definition resolves the tag name under point inside a reference attribute
// of a markup file to the anchor that declares it.
func (l *Linker) Definition(file syntax.FileID, point sitter.Point) (Location, bool) {
	root, src, ok := l.markup(file)
	if !ok || l.queries == nil {
		return Location{}, false
	}

	pos, ok := position.Resolve(root, src, point, position.Definition, l.queries)
	if !ok || pos.Kind != position.AttributeValue || pos.Name != tags.ReferenceAttribute || pos.Definition == nil {
		return Location{}, false
	}

	tok, ok := tags.TokenAt(pos.Value, *pos.Definition)
	if !ok {
		return Location{}, false
	}
	tag, ok := l.tags.Get(tok.Name)
	if !ok {
		return Location{}, false
	}
	uri, ok := l.registry.URI(tag.File)
	if !ok {
		return Location{}, false
	}
	return Location{URI: uri, Start: tag.Start, End: tag.End}, true
}

// Implementation returns the value span of the reference attribute under
// point.
func (l *Linker) Implementation(file syntax.FileID, point sitter.Point) (Location, bool) {
	value, ok := l.ReferenceAt(file, point)
	if !ok {
		return Location{}, false
	}
	uri, ok := l.registry.URI(file)
	if !ok {
		return Location{}, false
	}
	return Location{URI: uri, Start: value.Start, End: value.End}, true
}

// ReferenceAt returns the value capture of the reference attribute whose span
// holds point.
func (l *Linker) ReferenceAt(file syntax.FileID, point sitter.Point) (position.Capture, bool) {
	root, src, ok := l.markup(file)
	if !ok || l.queries == nil || l.queries.ReferenceQuery() == nil {
		return position.Capture{}, false
	}
	for _, m := range position.Matches(l.queries.ReferenceQuery(), root, src) {
		ref, ok := m["reference"]
		if !ok {
			continue
		}
		if position.ComparePoints(point, ref.Start) < 0 || position.ComparePoints(point, ref.End) > 0 {
			continue
		}
		if value, ok := m["attr_value"]; ok {
			return value, true
		}
	}
	return position.Capture{}, false
}

// TagAt returns the anchor declared at point in a script or backend file,
// whether or not it won its name in the index.
func (l *Linker) TagAt(file syntax.FileID, lang grammar.Language, point sitter.Point) (tags.Tag, bool) {
	if l.queries == nil {
		return tags.Tag{}, false
	}
	q, scopes, err := l.queries.AnchorQuery(lang)
	if err != nil {
		return tags.Tag{}, false
	}
	tree, ok := l.trees.Tree(file, lang)
	if !ok {
		return tags.Tag{}, false
	}
	src, _ := l.trees.Source(file, lang)
	return tags.At(tags.Scan(q, scopes, tree.RootNode(), src, file), point)
}

// References lists every reference attribute token naming the anchor under
// point, ordered by file id and then position.
func (l *Linker) References(file syntax.FileID, lang grammar.Language, point sitter.Point) []Location {
	tag, ok := l.TagAt(file, lang, point)
	if !ok || l.queries.ReferenceQuery() == nil {
		return nil
	}

	var out []Location
	for _, id := range l.trees.Files(grammar.Markup) {
		uri, ok := l.registry.URI(id)
		if !ok {
			continue
		}
		root, src, _ := l.markup(id)

		var found []Location
		for _, m := range position.Matches(l.queries.ReferenceQuery(), root, src) {
			value, ok := m["attr_value"]
			if !ok {
				continue
			}
			tokens, ok := tags.SplitReferences(value.Text, value.Start.Column, value.Start.Row)
			if !ok {
				continue
			}
			for _, tok := range tokens {
				if tok.Name != tag.Name {
					continue
				}
				found = append(found, Location{
					URI:   uri,
					Start: sitter.Point{Row: tok.Row, Column: tok.Start},
					End:   sitter.Point{Row: tok.Row, Column: tok.End},
				})
			}
		}
		sort.SliceStable(found, func(i, j int) bool {
			return position.ComparePoints(found[i].Start, found[j].Start) < 0
		})
		out = append(out, found...)
	}
	return out
}

// Diagnostics turns rejected tags into warnings grouped by file URI.
func (l *Linker) Diagnostics(rejected []tags.Tag) map[string][]Diagnostic {
	out := map[string][]Diagnostic{}
	for _, t := range rejected {
		uri, ok := l.registry.URI(t.File)
		if !ok {
			continue
		}
		out[uri] = append(out[uri], Diagnostic{Start: t.Start, End: t.End, Message: DuplicateMessage})
	}
	return out
}

package tags

import (
	"slices"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/walteh/hxlsp/pkg/syntax"
)

// Scan collects the anchors matched by q under root. When scopes is non-empty
// a comment only counts if one of its ancestors has a kind in scopes.
func Scan(q *sitter.Query, scopes []string, root *sitter.Node, src []byte, file syntax.FileID) []Tag {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	var out []Tag
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, src)
		for _, c := range m.Captures {
			if q.CaptureNameForId(c.Index) != "anchor" {
				continue
			}
			if len(scopes) > 0 && !insideScope(c.Node, scopes) {
				continue
			}
			t, ok := ParseAnchor(c.Node.Content(src), c.Node.StartPoint())
			if !ok {
				continue
			}
			t.File = file
			out = append(out, t)
		}
	}
	return out
}

func insideScope(n *sitter.Node, scopes []string) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if slices.Contains(scopes, p.Type()) {
			return true
		}
	}
	return false
}

// At returns the tag declared at p, if any.
func At(found []Tag, p sitter.Point) (Tag, bool) {
	for _, t := range found {
		if t.Contains(p) {
			return t, true
		}
	}
	return Tag{}, false
}

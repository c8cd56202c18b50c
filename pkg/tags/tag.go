// Package tags tracks the named anchors declared in script and backend
// comments and the references to them in markup.
package tags

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/walteh/hxlsp/pkg/syntax"
)

// Marker introduces a tag name inside a comment.
const Marker = "hx@"

// Tag is one anchor. End is exclusive.
type Tag struct {
	Name  string
	Start sitter.Point
	End   sitter.Point
	File  syntax.FileID
}

// Contains reports whether p lies on the marker or the name.
func (t Tag) Contains(p sitter.Point) bool {
	if p.Row < t.Start.Row || p.Row > t.End.Row {
		return false
	}
	if p.Row == t.Start.Row && p.Column < t.Start.Column {
		return false
	}
	if p.Row == t.End.Row && p.Column >= t.End.Column {
		return false
	}
	return true
}

// ParseAnchor extracts a tag from comment text that starts at point at. The
// comment needs a marker preceded by whitespace. The name is the first
// segment after a marker that is non-empty and holds no whitespace, so
// "hx@a hx@b" names b.
func ParseAnchor(comment string, at sitter.Point) (Tag, bool) {
	text := strings.TrimRightFunc(comment, unicode.IsSpace)
	text = strings.TrimRightFunc(strings.TrimSuffix(text, "*/"), unicode.IsSpace)
	if !spacedMarker(text) {
		return Tag{}, false
	}

	for idx := strings.Index(text, Marker); idx >= 0; {
		rest := text[idx+len(Marker):]
		next := strings.Index(rest, Marker)
		name := rest
		if next >= 0 {
			name = rest[:next]
		}
		if name != "" && strings.IndexFunc(name, unicode.IsSpace) < 0 {
			start := offsetPoint(at, comment[:idx])
			return Tag{
				Name:  name,
				Start: start,
				End:   sitter.Point{Row: start.Row, Column: start.Column + uint32(len(Marker)+len(name))},
			}, true
		}
		if next < 0 {
			break
		}
		idx += len(Marker) + next
	}
	return Tag{}, false
}

func spacedMarker(text string) bool {
	for i := strings.Index(text, Marker); i >= 0; {
		if i > 0 && unicode.IsSpace(rune(text[i-1])) {
			return true
		}
		j := strings.Index(text[i+1:], Marker)
		if j < 0 {
			return false
		}
		i += 1 + j
	}
	return false
}

func offsetPoint(at sitter.Point, prefix string) sitter.Point {
	nl := strings.LastIndexByte(prefix, '\n')
	if nl < 0 {
		return sitter.Point{Row: at.Row, Column: at.Column + uint32(len(prefix))}
	}
	return sitter.Point{
		Row:    at.Row + uint32(strings.Count(prefix, "\n")),
		Column: uint32(len(prefix) - nl - 1),
	}
}

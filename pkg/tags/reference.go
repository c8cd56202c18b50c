package tags

import (
	"strings"

	"github.com/walteh/hxlsp/pkg/position"
)

// ReferenceAttribute is the markup attribute listing the tags an element
// links to.
const ReferenceAttribute = "hx-lsp"

// Token is one name of a reference value. End is exclusive.
type Token struct {
	Name  string
	Row   uint32
	Start uint32
	End   uint32
}

// SplitReferences splits a space separated reference value whose first
// character sits at column start on row. A leading space or a run of two
// spaces makes the value malformed.
func SplitReferences(value string, start, row uint32) ([]Token, bool) {
	if value == "" || strings.HasPrefix(value, " ") || strings.Contains(value, "  ") {
		return nil, false
	}
	var out []Token
	col := start
	for _, part := range strings.Split(value, " ") {
		if part == "" {
			continue
		}
		out = append(out, Token{Name: part, Row: row, Start: col, End: col + uint32(len(part))})
		col += uint32(len(part)) + 1
	}
	return out, true
}

// TokenAt returns the token of value under the locator's trigger column.
func TokenAt(value string, loc position.DefinitionLocator) (Token, bool) {
	tokens, ok := SplitReferences(value, loc.Start, loc.Point.Row)
	if !ok {
		return Token{}, false
	}
	for _, t := range tokens {
		if loc.Point.Column >= t.Start && loc.Point.Column < t.End {
			return t, true
		}
	}
	return Token{}, false
}

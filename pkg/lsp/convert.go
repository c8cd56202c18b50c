package lsp

import (
	sitter "github.com/smacker/go-tree-sitter"
	glsp "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/hxlsp/pkg/linker"
)

// Character offsets are taken as byte columns, the way the syntax trees
// count them.

func toPoint(p glsp.Position) sitter.Point {
	return sitter.Point{Row: p.Line, Column: p.Character}
}

func toPosition(p sitter.Point) glsp.Position {
	return glsp.Position{Line: p.Row, Character: p.Column}
}

func toRange(start, end sitter.Point) glsp.Range {
	return glsp.Range{Start: toPosition(start), End: toPosition(end)}
}

func toLocation(loc linker.Location) glsp.Location {
	return glsp.Location{URI: loc.URI, Range: toRange(loc.Start, loc.End)}
}

package syntax

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Edit describes a text splice in both byte and point coordinates.
type Edit struct {
	StartByte   uint32
	OldEndByte  uint32
	NewEndByte  uint32
	StartPoint  sitter.Point
	OldEndPoint sitter.Point
	NewEndPoint sitter.Point
}

// NewEdit builds the descriptor for replacing [start, oldEnd) with text.
func NewEdit(startByte, oldEndByte uint32, start, oldEnd sitter.Point, text string) Edit {
	return Edit{
		StartByte:   startByte,
		OldEndByte:  oldEndByte,
		NewEndByte:  startByte + uint32(len(text)),
		StartPoint:  start,
		OldEndPoint: oldEnd,
		NewEndPoint: PointAfter(start, text),
	}
}

// PointAfter returns the point reached by inserting text at start.
func PointAfter(start sitter.Point, text string) sitter.Point {
	rows := strings.Count(text, "\n")
	if rows == 0 {
		return sitter.Point{Row: start.Row, Column: start.Column + uint32(len(text))}
	}
	last := text[strings.LastIndexByte(text, '\n')+1:]
	return sitter.Point{Row: start.Row + uint32(rows), Column: uint32(len(last))}
}

func (e Edit) input() sitter.EditInput {
	return sitter.EditInput{
		StartIndex:  e.StartByte,
		OldEndIndex: e.OldEndByte,
		NewEndIndex: e.NewEndByte,
		StartPoint:  e.StartPoint,
		OldEndPoint: e.OldEndPoint,
		NewEndPoint: e.NewEndPoint,
	}
}

// Package document keeps the editor's view of open files.
package document

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/walteh/hxlsp/pkg/syntax"
	"gitlab.com/tozd/go/errors"
)

var ErrOutOfRange = errors.New("position out of range")

// Buffer is the text of one open document. Columns are byte offsets within
// a line.
type Buffer struct {
	mu      sync.Mutex
	uri     string
	version int32
	text    string
}

func NewBuffer(uri, text string, version int32) *Buffer {
	return &Buffer{uri: uri, text: text, version: version}
}

func (b *Buffer) URI() string {
	return b.uri
}

func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

func (b *Buffer) Version() int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// LineText returns line n without its terminator.
func (b *Buffer) LineText(n uint32) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	start, ok := lineStart(b.text, n)
	if !ok {
		return "", false
	}
	line := b.text[start:]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSuffix(line, "\r"), true
}

// Offset converts p to a byte offset. A column past the end of its line is
// clamped to the line end.
func (b *Buffer) Offset(p sitter.Point) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return offset(b.text, p)
}

// Replace swaps the whole text, as a full sync change does.
func (b *Buffer) Replace(text string, version int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	b.version = version
}

// ApplyEdit splices text over [start, end) and describes the splice for an
// incremental reparse.
func (b *Buffer) ApplyEdit(start, end sitter.Point, text string, version int32) (syntax.Edit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	from, err := offset(b.text, start)
	if err != nil {
		return syntax.Edit{}, errors.Errorf("edit start %d:%d: %w", start.Row, start.Column, err)
	}
	to, err := offset(b.text, end)
	if err != nil {
		return syntax.Edit{}, errors.Errorf("edit end %d:%d: %w", end.Row, end.Column, err)
	}
	if to < from {
		return syntax.Edit{}, errors.Errorf("edit ends before it starts: %w", ErrOutOfRange)
	}

	// offsets may have been clamped, so the points are recomputed from them
	edit := syntax.NewEdit(from, to, pointAt(b.text, from), pointAt(b.text, to), text)
	b.text = b.text[:from] + text + b.text[to:]
	b.version = version
	return edit, nil
}

func lineStart(text string, row uint32) (int, bool) {
	pos := 0
	for i := uint32(0); i < row; i++ {
		nl := strings.IndexByte(text[pos:], '\n')
		if nl < 0 {
			return 0, false
		}
		pos += nl + 1
	}
	return pos, true
}

func offset(text string, p sitter.Point) (uint32, error) {
	start, ok := lineStart(text, p.Row)
	if !ok {
		return 0, ErrOutOfRange
	}
	end := len(text)
	if nl := strings.IndexByte(text[start:], '\n'); nl >= 0 {
		end = start + nl
	}
	col := start + int(p.Column)
	if col > end {
		col = end
	}
	return uint32(col), nil
}

func pointAt(text string, off uint32) sitter.Point {
	prefix := text[:off]
	nl := strings.LastIndexByte(prefix, '\n')
	return sitter.Point{
		Row:    uint32(strings.Count(prefix, "\n")),
		Column: uint32(len(prefix) - nl - 1),
	}
}

package document_test

import (
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/hxlsp/pkg/document"
	"github.com/walteh/hxlsp/pkg/syntax"
)

func pt(row, col uint32) sitter.Point {
	return sitter.Point{Row: row, Column: col}
}

func TestApplyEdit(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		start, end sitter.Point
		insert     string
		want       string
		wantEdit   syntax.Edit
	}{
		{
			name:   "insert mid line",
			text:   "<div hx-></div>",
			start:  pt(0, 8),
			end:    pt(0, 8),
			insert: "get",
			want:   "<div hx-get></div>",
			wantEdit: syntax.Edit{
				StartByte: 8, OldEndByte: 8, NewEndByte: 11,
				StartPoint: pt(0, 8), OldEndPoint: pt(0, 8), NewEndPoint: pt(0, 11),
			},
		},
		{
			name:   "replace across lines",
			text:   "<p>\n  a\n</p>\n",
			start:  pt(0, 3),
			end:    pt(2, 0),
			insert: "b",
			want:   "<p>b</p>\n",
			wantEdit: syntax.Edit{
				StartByte: 3, OldEndByte: 8, NewEndByte: 4,
				StartPoint: pt(0, 3), OldEndPoint: pt(2, 0), NewEndPoint: pt(0, 4),
			},
		},
		{
			name:   "insert newline",
			text:   "ab",
			start:  pt(0, 1),
			end:    pt(0, 1),
			insert: "\n  ",
			want:   "a\n  b",
			wantEdit: syntax.Edit{
				StartByte: 1, OldEndByte: 1, NewEndByte: 4,
				StartPoint: pt(0, 1), OldEndPoint: pt(0, 1), NewEndPoint: pt(1, 2),
			},
		},
		{
			name:   "column past line end is clamped",
			text:   "ab\ncd",
			start:  pt(0, 40),
			end:    pt(0, 40),
			insert: "!",
			want:   "ab!\ncd",
			wantEdit: syntax.Edit{
				StartByte: 2, OldEndByte: 2, NewEndByte: 3,
				StartPoint: pt(0, 2), OldEndPoint: pt(0, 2), NewEndPoint: pt(0, 3),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := document.NewBuffer("file:///a.html", tt.text, 1)
			edit, err := buf.ApplyEdit(tt.start, tt.end, tt.insert, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEdit, edit)
			assert.Equal(t, tt.want, buf.Text())
			assert.Equal(t, int32(2), buf.Version())
		})
	}
}

func TestApplyEditOutOfRange(t *testing.T) {
	buf := document.NewBuffer("file:///a.html", "one\ntwo", 1)

	_, err := buf.ApplyEdit(pt(5, 0), pt(5, 0), "x", 2)
	require.ErrorIs(t, err, document.ErrOutOfRange)

	_, err = buf.ApplyEdit(pt(1, 0), pt(0, 0), "x", 2)
	require.ErrorIs(t, err, document.ErrOutOfRange)

	assert.Equal(t, "one\ntwo", buf.Text())
	assert.Equal(t, int32(1), buf.Version())
}

func TestLineText(t *testing.T) {
	buf := document.NewBuffer("file:///a.py", "def a():\r\n    # hx@a\n", 1)

	line, ok := buf.LineText(0)
	require.True(t, ok)
	assert.Equal(t, "def a():", line)

	line, ok = buf.LineText(1)
	require.True(t, ok)
	assert.Equal(t, "    # hx@a", line)

	line, ok = buf.LineText(2)
	require.True(t, ok)
	assert.Empty(t, line)

	_, ok = buf.LineText(3)
	assert.False(t, ok)
}

func TestStore(t *testing.T) {
	s := document.NewStore()
	s.Open("file:///app/a.html", "<p></p>", 1)

	buf, ok := s.Get("file:/app/a.html")
	require.True(t, ok)
	assert.Equal(t, "<p></p>", buf.Text())
	assert.True(t, s.IsOpen("file:///app/%61.html"))

	s.Open("file:///app/b.html", "<b></b>", 1)
	var seen []string
	s.Range(func(buf *document.Buffer) bool {
		seen = append(seen, buf.URI())
		return true
	})
	assert.ElementsMatch(t, []string{"file:///app/a.html", "file:///app/b.html"}, seen)

	s.Close("file:///app/a.html")
	assert.False(t, s.IsOpen("file:///app/a.html"))
}

func TestURIRoundTrip(t *testing.T) {
	assert.Equal(t, "/app/templates/x.html", document.Path("file:///app/templates/x.html"))
	assert.Equal(t, "file:///app/templates/x.html", document.URI("/app/templates/x.html"))
	assert.Equal(t, "file:///app/x.html", document.NormalizeURI("file:///app/./x.html"))
	assert.Equal(t, "untitled:1", document.NormalizeURI("untitled:1"))
}

package syntax_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/hxlsp/pkg/diff"
	"github.com/walteh/hxlsp/pkg/grammar"
	"github.com/walteh/hxlsp/pkg/syntax"
	"gitlab.com/tozd/go/errors"
)

func TestRegistry(t *testing.T) {
	r := syntax.NewRegistry()

	a := r.Register("file:///a.html")
	b := r.Register("file:///b.html")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, r.Register("file:///a.html"), "registering twice returns the same id")

	uri, ok := r.URI(b)
	require.True(t, ok)
	assert.Equal(t, "file:///b.html", uri)
	assert.Equal(t, []string{"file:///a.html", "file:///b.html"}, r.URIs())

	r.Reset()
	assert.Equal(t, 0, r.Len())
	_, ok = r.Lookup("file:///a.html")
	assert.False(t, ok)

	c := r.Register("file:///a.html")
	assert.Greater(t, c, b, "ids are not reused after a reset")

	r.Forget("file:///a.html")
	_, ok = r.URI(c)
	assert.False(t, ok)
}

func TestPointAfter(t *testing.T) {
	tests := []struct {
		name  string
		start sitter.Point
		text  string
		want  sitter.Point
	}{
		{name: "empty", start: sitter.Point{Row: 2, Column: 4}, text: "", want: sitter.Point{Row: 2, Column: 4}},
		{name: "same line", start: sitter.Point{Row: 0, Column: 5}, text: "abc", want: sitter.Point{Row: 0, Column: 8}},
		{name: "multi line", start: sitter.Point{Row: 1, Column: 5}, text: "a\nbc\ndef", want: sitter.Point{Row: 3, Column: 3}},
		{name: "trailing newline", start: sitter.Point{Row: 0, Column: 1}, text: "x\n", want: sitter.Point{Row: 1, Column: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, syntax.PointAfter(tt.start, tt.text))
		})
	}
}

func TestNewEdit(t *testing.T) {
	e := syntax.NewEdit(5, 8, sitter.Point{Row: 0, Column: 5}, sitter.Point{Row: 0, Column: 8}, "hx-get")
	assert.Equal(t, uint32(11), e.NewEndByte)
	assert.Equal(t, sitter.Point{Row: 0, Column: 11}, e.NewEndPoint)
}

func dump(n *sitter.Node) string {
	var sb strings.Builder
	var walk func(n *sitter.Node, depth int)
	walk = func(n *sitter.Node, depth int) {
		fmt.Fprintf(&sb, "%s%s [%d-%d] %v-%v\n", strings.Repeat(" ", depth), n.Type(), n.StartByte(), n.EndByte(), n.StartPoint(), n.EndPoint())
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), depth+1)
		}
	}
	walk(n, 0)
	return sb.String()
}

func newIndex(t *testing.T) *syntax.Index {
	t.Helper()
	set, err := grammar.NewSet(grammar.BackendPython)
	require.NoError(t, err)
	t.Cleanup(set.Close)
	return syntax.NewIndex(set)
}

func TestReparseNoopMatchesFreshParse(t *testing.T) {
	ctx := context.Background()
	src := []byte(`<div hx-get="/foo" hx-target="" hx-swap="#swap"></div>`)

	idx := newIndex(t)
	require.NoError(t, idx.Parse(ctx, 1, grammar.Markup, src))
	require.NoError(t, idx.Parse(ctx, 2, grammar.Markup, src))

	noop := syntax.NewEdit(10, 10, sitter.Point{Row: 0, Column: 10}, sitter.Point{Row: 0, Column: 10}, "")
	require.NoError(t, idx.Reparse(ctx, 1, grammar.Markup, src, noop))

	a, ok := idx.Tree(1, grammar.Markup)
	require.True(t, ok)
	b, ok := idx.Tree(2, grammar.Markup)
	require.True(t, ok)

	if d := diff.Lines(dump(b.RootNode()), dump(a.RootNode())); d != "" {
		t.Fatalf("noop reparse changed the tree: %s", d)
	}
}

func TestReparseEditMatchesFreshParse(t *testing.T) {
	ctx := context.Background()
	before := "<div hx-get=\"/a\">\n  <span hx-swap=\"none\"></span>\n</div>"
	after := "<div hx-get=\"/a\">\n  <span hx-target=\"this\" hx-swap=\"none\"></span>\n</div>"

	idx := newIndex(t)
	require.NoError(t, idx.Parse(ctx, 1, grammar.Markup, []byte(before)))

	start := uint32(strings.Index(before, "hx-swap"))
	insert := `hx-target="this" `
	edit := syntax.NewEdit(start, start, sitter.Point{Row: 1, Column: 8}, sitter.Point{Row: 1, Column: 8}, insert)
	require.NoError(t, idx.Reparse(ctx, 1, grammar.Markup, []byte(after), edit))

	require.NoError(t, idx.Parse(ctx, 2, grammar.Markup, []byte(after)))

	a, _ := idx.Tree(1, grammar.Markup)
	b, _ := idx.Tree(2, grammar.Markup)
	if d := diff.Lines(dump(b.RootNode()), dump(a.RootNode())); d != "" {
		t.Fatalf("incremental reparse differs from a fresh parse: %s", d)
	}
}

// flakyParser delegates to a real parser until budget calls are spent.
type flakyParser struct {
	syntax.Parser
	budget int
}

func (p *flakyParser) Parse(ctx context.Context, lang grammar.Language, old *sitter.Tree, src []byte) (*sitter.Tree, error) {
	if p.budget == 0 {
		return nil, errors.New("parser unavailable")
	}
	p.budget--
	return p.Parser.Parse(ctx, lang, old, src)
}

func TestReparseFailureKeepsInstalledTree(t *testing.T) {
	ctx := context.Background()
	before := `<div hx-get="/a"></div>`
	after := `<div hx-get="/a" hx-swap="outerHTML"></div>`

	set, err := grammar.NewSet(grammar.BackendPython)
	require.NoError(t, err)
	t.Cleanup(set.Close)

	idx := syntax.NewIndex(&flakyParser{Parser: set, budget: 1})
	require.NoError(t, idx.Parse(ctx, 1, grammar.Markup, []byte(before)))

	tree, _ := idx.Tree(1, grammar.Markup)
	want := dump(tree.RootNode())

	at := uint32(strings.Index(before, "></div>"))
	edit := syntax.NewEdit(at, at, sitter.Point{Column: at}, sitter.Point{Column: at}, ` hx-swap="outerHTML"`)
	require.Error(t, idx.Reparse(ctx, 1, grammar.Markup, []byte(after), edit))

	tree, ok := idx.Tree(1, grammar.Markup)
	require.True(t, ok)
	src, ok := idx.Source(1, grammar.Markup)
	require.True(t, ok)
	assert.Equal(t, before, string(src))
	assert.Equal(t, uint32(len(before)), tree.RootNode().EndByte())
	if d := diff.Lines(want, dump(tree.RootNode())); d != "" {
		t.Fatalf("failed reparse touched the installed tree: %s", d)
	}
	assert.Equal(t, `<div hx-get="/a">`, tree.RootNode().Child(0).Child(0).Content(src))
}

func TestReparseWithoutTreeParsesFresh(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Reparse(context.Background(), 3, grammar.Backend, []byte("# hx@x\n")))

	_, ok := idx.Tree(3, grammar.Backend)
	assert.True(t, ok)
	src, ok := idx.Source(3, grammar.Backend)
	require.True(t, ok)
	assert.Equal(t, "# hx@x\n", string(src))
	assert.Equal(t, []syntax.FileID{3}, idx.Files(grammar.Backend))
	assert.Empty(t, idx.Files(grammar.Markup))
}

func TestRemoveAndReset(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	require.NoError(t, idx.Parse(ctx, 1, grammar.Markup, []byte("<p></p>")))
	require.NoError(t, idx.Parse(ctx, 2, grammar.Markup, []byte("<p></p>")))
	require.NoError(t, idx.Parse(ctx, 2, grammar.Script, []byte("function a() {}")))

	idx.Remove(1)
	assert.Equal(t, []syntax.FileID{2}, idx.Files(grammar.Markup))

	idx.Reset()
	assert.Empty(t, idx.Files(grammar.Markup))
	assert.Empty(t, idx.Files(grammar.Script))
}

package tags_test

import (
	"context"
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/hxlsp/pkg/grammar"
	"github.com/walteh/hxlsp/pkg/position"
	"github.com/walteh/hxlsp/pkg/syntax"
	"github.com/walteh/hxlsp/pkg/tags"
)

func TestParseAnchor(t *testing.T) {
	tests := []struct {
		name    string
		comment string
		at      sitter.Point
		want    tags.Tag
		wantOk  bool
	}{
		{
			name:    "line comment",
			comment: "// hx@greet",
			at:      sitter.Point{Row: 4, Column: 4},
			want:    tags.Tag{Name: "greet", Start: sitter.Point{Row: 4, Column: 7}, End: sitter.Point{Row: 4, Column: 15}},
			wantOk:  true,
		},
		{
			name:    "python comment with trailing space",
			comment: "# hx@hello_world  ",
			want:    tags.Tag{Name: "hello_world", Start: sitter.Point{Column: 2}, End: sitter.Point{Column: 16}},
			wantOk:  true,
		},
		{
			name:    "block comment on later line",
			comment: "/*\n   hx@wave */",
			at:      sitter.Point{Row: 2, Column: 8},
			want:    tags.Tag{Name: "wave", Start: sitter.Point{Row: 3, Column: 3}, End: sitter.Point{Row: 3, Column: 10}},
			wantOk:  true,
		},
		{
			name:    "first segment without spaces wins",
			comment: "// hx@a hx@b",
			want:    tags.Tag{Name: "b", Start: sitter.Point{Column: 8}, End: sitter.Point{Column: 12}},
			wantOk:  true,
		},
		{
			name:    "adjacent markers",
			comment: "# hx@hx@c",
			want:    tags.Tag{Name: "c", Start: sitter.Point{Column: 5}, End: sitter.Point{Column: 9}},
			wantOk:  true,
		},
		{name: "marker glued to comment leader", comment: "//hx@greet"},
		{name: "marker followed by space", comment: "// hx@ greet"},
		{name: "name with inner space", comment: "// hx@greet world"},
		{name: "bare marker", comment: "// hx@"},
		{name: "no marker", comment: "// greet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tags.ParseAnchor(tt.comment, tt.at)
			require.Equal(t, tt.wantOk, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSplitReferencesRoundTrip(t *testing.T) {
	line := `<div hx-lsp="a b c"></div>`
	start := uint32(strings.Index(line, "a b c"))

	tokens, ok := tags.SplitReferences("a b c", start, 0)
	require.True(t, ok)
	require.Len(t, tokens, 3)

	var parts []string
	for i, tok := range tokens {
		parts = append(parts, line[tok.Start:tok.End])
		if i > 0 {
			assert.Less(t, tokens[i-1].End, tok.Start, "spans overlap")
		}
	}
	assert.Equal(t, "a b c", strings.Join(parts, " "))
	assert.Equal(t, []string{"a", "b", "c"}, parts)
}

func TestSplitReferencesMalformed(t *testing.T) {
	for _, value := range []string{" a", "a  b", "", "a   b c"} {
		t.Run(value, func(t *testing.T) {
			tokens, ok := tags.SplitReferences(value, 0, 0)
			assert.False(t, ok)
			assert.Nil(t, tokens)
		})
	}
}

func TestTokenAt(t *testing.T) {
	loc := position.DefinitionLocator{Start: 13, Point: sitter.Point{Row: 2, Column: 20}}

	tok, ok := tags.TokenAt("greet wave", loc)
	require.True(t, ok)
	assert.Equal(t, tags.Token{Name: "wave", Row: 2, Start: 19, End: 23}, tok)

	loc.Point.Column = 18
	_, ok = tags.TokenAt("greet wave", loc)
	assert.False(t, ok, "the separating space belongs to no token")

	_, ok = tags.TokenAt("greet  wave", loc)
	assert.False(t, ok)
}

func TestIndexRejectsDuplicates(t *testing.T) {
	idx := tags.NewIndex()

	first := tags.Tag{Name: "greet", Start: sitter.Point{Row: 1, Column: 6}, End: sitter.Point{Row: 1, Column: 14}}
	second := tags.Tag{Name: "greet", Start: sitter.Point{Row: 3, Column: 4}, End: sitter.Point{Row: 3, Column: 12}}

	assert.Empty(t, idx.ReplaceFile(0, []tags.Tag{first}))
	rejected := idx.ReplaceFile(1, []tags.Tag{second})
	require.Len(t, rejected, 1)
	assert.Equal(t, syntax.FileID(1), rejected[0].File)

	got, ok := idx.Get("greet")
	require.True(t, ok)
	assert.Equal(t, syntax.FileID(0), got.File)
	assert.Equal(t, first.Start, got.Start)

	err := idx.Add(tags.Tag{Name: "greet", File: 2})
	var dup *tags.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, syntax.FileID(0), dup.Existing.File)
}

func TestIndexReplaceFile(t *testing.T) {
	idx := tags.NewIndex()

	idx.ReplaceFile(0, []tags.Tag{{Name: "a"}, {Name: "b"}})
	idx.ReplaceFile(1, []tags.Tag{{Name: "c"}})
	require.Equal(t, 3, idx.Len())

	rejected := idx.ReplaceFile(0, []tags.Tag{{Name: "b"}, {Name: "b", Start: sitter.Point{Row: 9}}})
	require.Len(t, rejected, 1, "a file can collide with itself")
	assert.Equal(t, uint32(9), rejected[0].Start.Row)

	_, ok := idx.Get("a")
	assert.False(t, ok)

	all := idx.All()
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].Name)
	assert.Equal(t, "c", all[1].Name)

	idx.Reset()
	assert.Zero(t, idx.Len())
}

func scan(t *testing.T, backend grammar.BackendKind, lang grammar.Language, src string) []tags.Tag {
	t.Helper()

	set, err := grammar.NewSet(backend)
	require.NoError(t, err)
	t.Cleanup(set.Close)

	tree, err := set.Parse(context.Background(), lang, nil, []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)

	q, scopes, err := set.AnchorQuery(lang)
	require.NoError(t, err)

	return tags.Scan(q, scopes, tree.RootNode(), []byte(src), 7)
}

func names(found []tags.Tag) []string {
	var out []string
	for _, t := range found {
		out = append(out, t.Name)
	}
	return out
}

func TestScanPython(t *testing.T) {
	src := `
def hello():
    # hx@hello
    # hx@world
    print("hello")
    # hx@hello_world
`
	found := scan(t, grammar.BackendPython, grammar.Backend, src)
	require.Equal(t, []string{"hello", "world", "hello_world"}, names(found))

	assert.Equal(t, sitter.Point{Row: 2, Column: 6}, found[0].Start)
	assert.Equal(t, sitter.Point{Row: 2, Column: 14}, found[0].End)
	for _, tag := range found {
		assert.Equal(t, syntax.FileID(7), tag.File)
	}
}

func TestScanRustRequiresFunctionScope(t *testing.T) {
	src := `// hx@outside
fn greet() {
    // hx@greet
    let f = || {
        // hx@inner
    };
}
`
	found := scan(t, grammar.BackendRust, grammar.Backend, src)
	assert.Equal(t, []string{"greet", "inner"}, names(found))
}

func TestScanGo(t *testing.T) {
	src := `package main

// hx@top
func greet() {
	// hx@greet
}
`
	found := scan(t, grammar.BackendGo, grammar.Backend, src)
	assert.Equal(t, []string{"greet"}, names(found))
}

func TestScanScript(t *testing.T) {
	src := `// hx@top
function wave() {
  // hx@wave
}
const nod = () => {
  // hx@nod
};
`
	found := scan(t, grammar.BackendGo, grammar.Script, src)
	assert.Equal(t, []string{"wave", "nod"}, names(found))

	tag, ok := tags.At(found, sitter.Point{Row: 2, Column: 9})
	require.True(t, ok)
	assert.Equal(t, "wave", tag.Name)

	_, ok = tags.At(found, sitter.Point{Row: 2, Column: 2})
	assert.False(t, ok)
}

func TestTagContains(t *testing.T) {
	tag, ok := tags.ParseAnchor("# hx@wave", sitter.Point{Row: 3})
	require.True(t, ok)

	tests := []struct {
		column uint32
		want   bool
	}{
		{1, false},
		{2, true},
		{5, true},
		{8, true},
		{9, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tag.Contains(sitter.Point{Row: 3, Column: tt.column}), "column %d", tt.column)
	}
	assert.False(t, tag.Contains(sitter.Point{Row: 4, Column: 5}))
}

package syntax

import (
	"context"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/walteh/hxlsp/pkg/grammar"
	"gitlab.com/tozd/go/errors"
)

// Parser produces trees for a language slot; *grammar.Set implements it.
type Parser interface {
	Parse(ctx context.Context, lang grammar.Language, old *sitter.Tree, src []byte) (*sitter.Tree, error)
}

type parsed struct {
	tree *sitter.Tree
	src  []byte
}

type trees [grammar.NumLanguages]parsed

// Index holds at most one tree per (file, language) together with the text
// it was parsed from. It is not safe for concurrent use.
type Index struct {
	parser Parser
	files  map[FileID]*trees
}

func NewIndex(parser Parser) *Index {
	return &Index{
		parser: parser,
		files:  make(map[FileID]*trees),
	}
}

// SetParser swaps the parser used for subsequent parses.
func (x *Index) SetParser(parser Parser) {
	x.parser = parser
}

// Parse performs a fresh parse of src and installs the result.
func (x *Index) Parse(ctx context.Context, file FileID, lang grammar.Language, src []byte) error {
	tree, err := x.parser.Parse(ctx, lang, nil, src)
	if err != nil {
		return errors.Errorf("parsing file %d: %w", file, err)
	}
	x.install(file, lang, tree, src)
	return nil
}

// Reparse applies edits to a copy of the installed tree and parses src
// incrementally from it. The installed tree and its text are untouched when
// parsing fails. Without an installed tree it falls back to Parse.
func (x *Index) Reparse(ctx context.Context, file FileID, lang grammar.Language, src []byte, edits ...Edit) error {
	old, ok := x.Tree(file, lang)
	if !ok {
		return x.Parse(ctx, file, lang, src)
	}
	seed := old.Copy()
	defer seed.Close()
	for _, e := range edits {
		seed.Edit(e.input())
	}
	tree, err := x.parser.Parse(ctx, lang, seed, src)
	if err != nil {
		return errors.Errorf("reparsing file %d: %w", file, err)
	}
	x.install(file, lang, tree, src)
	return nil
}

func (x *Index) install(file FileID, lang grammar.Language, tree *sitter.Tree, src []byte) {
	slots, ok := x.files[file]
	if !ok {
		slots = &trees{}
		x.files[file] = slots
	}
	old := slots[lang].tree
	slots[lang] = parsed{tree: tree, src: append([]byte(nil), src...)}
	if old != nil && old != tree {
		old.Close()
	}
}

func (x *Index) Tree(file FileID, lang grammar.Language) (*sitter.Tree, bool) {
	if !lang.Valid() {
		return nil, false
	}
	slots, ok := x.files[file]
	if !ok || slots[lang].tree == nil {
		return nil, false
	}
	return slots[lang].tree, true
}

// Source returns the text the installed tree was parsed from.
func (x *Index) Source(file FileID, lang grammar.Language) ([]byte, bool) {
	if !lang.Valid() {
		return nil, false
	}
	slots, ok := x.files[file]
	if !ok || slots[lang].tree == nil {
		return nil, false
	}
	return slots[lang].src, true
}

// Files returns the ids holding a tree for lang, in ascending order.
func (x *Index) Files(lang grammar.Language) []FileID {
	var out []FileID
	for id, slots := range x.files {
		if lang.Valid() && slots[lang].tree != nil {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (x *Index) Remove(file FileID) {
	slots, ok := x.files[file]
	if !ok {
		return
	}
	delete(x.files, file)
	for _, p := range slots {
		if p.tree != nil {
			p.tree.Close()
		}
	}
}

func (x *Index) Reset() {
	for id := range x.files {
		x.Remove(id)
	}
}

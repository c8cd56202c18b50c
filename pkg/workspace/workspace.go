// Package workspace owns the parsed state of every known file behind a
// single lock: grammars, syntax trees and the tag index.
package workspace

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/spf13/afero"
	"github.com/walteh/hxlsp/pkg/config"
	"github.com/walteh/hxlsp/pkg/document"
	"github.com/walteh/hxlsp/pkg/grammar"
	"github.com/walteh/hxlsp/pkg/linker"
	"github.com/walteh/hxlsp/pkg/position"
	"github.com/walteh/hxlsp/pkg/syntax"
	"github.com/walteh/hxlsp/pkg/tags"
	"gitlab.com/tozd/go/errors"
)

// defaultBackend backs the grammar set until a valid configuration arrives.
const defaultBackend = grammar.BackendPython

var ErrClosed = errors.New("workspace closed")

type Workspace struct {
	mu sync.Mutex

	fs       afero.Fs
	cfg      *config.Config
	set      *grammar.Set
	registry *syntax.Registry
	trees    *syntax.Index
	tags     *tags.Index
	linker   *linker.Linker
	hashes   map[syntax.FileID]uint64
}

func New(fs afero.Fs) (*Workspace, error) {
	set, err := grammar.NewSet(defaultBackend)
	if err != nil {
		return nil, errors.Errorf("loading grammars: %w", err)
	}
	w := &Workspace{
		fs:       fs,
		set:      set,
		registry: syntax.NewRegistry(),
		trees:    syntax.NewIndex(set),
		tags:     tags.NewIndex(),
		hashes:   make(map[syntax.FileID]uint64),
	}
	w.linker = linker.New(w.registry, w.trees, w.tags, set)
	return w, nil
}

// Configured reports whether a valid configuration is installed.
func (w *Workspace) Configured() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg != nil
}

// Configure installs a validated configuration, swapping the backend grammar
// if needed, and rebuilds the index from disk. The returned tags are the
// duplicates found while indexing.
func (w *Workspace) Configure(ctx context.Context, cfg *config.Config) ([]tags.Tag, error) {
	backend, err := cfg.Backend()
	if err != nil {
		return nil, errors.Errorf("configuring workspace: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.set == nil {
		return nil, ErrClosed
	}

	if backend != w.set.Backend() {
		set, err := grammar.NewSet(backend)
		if err != nil {
			return nil, errors.Errorf("loading %s grammar: %w", backend, err)
		}
		w.resetLocked()
		w.set.Close()
		w.set = set
		w.trees.SetParser(set)
		w.linker = linker.New(w.registry, w.trees, w.tags, set)
	}
	w.cfg = cfg

	return w.indexLocked(ctx)
}

// Reindex drops all state and walks the configured directories again.
func (w *Workspace) Reindex(ctx context.Context) ([]tags.Tag, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.set == nil {
		return nil, ErrClosed
	}
	if w.cfg == nil {
		return nil, config.ErrNotFound
	}
	return w.indexLocked(ctx)
}

func (w *Workspace) resetLocked() {
	w.trees.Reset()
	w.tags.Reset()
	w.registry.Reset()
	clear(w.hashes)
}

// classify picks the language slot of a path. Without a configuration only
// script files are recognized and everything else is treated as markup.
func (w *Workspace) classify(path string) (grammar.Language, bool) {
	if w.cfg != nil {
		return w.cfg.Classify(path)
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if slices.Contains(grammar.ScriptExtensions, ext) {
		return grammar.Script, true
	}
	return grammar.Markup, true
}

// Classify is the locked form of classify.
func (w *Workspace) Classify(uri string) (grammar.Language, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.classify(document.Path(uri))
}

// IsTemplate reports whether uri carries the configured template extension.
// Without a configuration every file is accepted.
func (w *Workspace) IsTemplate(uri string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg == nil {
		return true
	}
	return w.cfg.IsTemplate(document.Path(uri))
}

// Open parses the text of a newly opened document.
func (w *Workspace) Open(ctx context.Context, uri, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.set == nil {
		return ErrClosed
	}
	lang, ok := w.classify(document.Path(uri))
	if !ok {
		return nil
	}
	id := w.registry.Register(uri)
	if err := w.trees.Parse(ctx, id, lang, []byte(text)); err != nil {
		return errors.Errorf("opening %s: %w", uri, err)
	}
	return nil
}

// Edit reparses a document incrementally after the given splices produced
// text.
func (w *Workspace) Edit(ctx context.Context, uri, text string, edits ...syntax.Edit) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.set == nil {
		return ErrClosed
	}
	lang, ok := w.classify(document.Path(uri))
	if !ok {
		return nil
	}
	id := w.registry.Register(uri)
	if err := w.trees.Reparse(ctx, id, lang, []byte(text), edits...); err != nil {
		return errors.Errorf("editing %s: %w", uri, err)
	}
	return nil
}

// Save reparses a saved document and, for script and backend files, rebuilds
// its tags. The returned tags lost their name to an earlier binding.
func (w *Workspace) Save(ctx context.Context, uri, text string) ([]tags.Tag, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.set == nil {
		return nil, ErrClosed
	}
	lang, ok := w.classify(document.Path(uri))
	if !ok {
		return nil, nil
	}
	return w.loadLocked(ctx, uri, lang, []byte(text))
}

func (w *Workspace) loadLocked(ctx context.Context, uri string, lang grammar.Language, src []byte) ([]tags.Tag, error) {
	id := w.registry.Register(uri)
	if err := w.trees.Parse(ctx, id, lang, src); err != nil {
		return nil, errors.Errorf("loading %s: %w", uri, err)
	}
	w.hashes[id] = xxhash.Sum64(src)

	if lang == grammar.Markup {
		return nil, nil
	}
	q, scopes, err := w.set.AnchorQuery(lang)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("uri", uri).Msg("no anchor query, skipping tag scan")
		return nil, nil
	}
	tree, _ := w.trees.Tree(id, lang)
	found := tags.Scan(q, scopes, tree.RootNode(), src, id)
	return w.tags.ReplaceFile(id, found), nil
}

// Forget drops everything known about uri.
func (w *Workspace) Forget(uri string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.forgetLocked(uri)
}

func (w *Workspace) forgetLocked(uri string) {
	id, ok := w.registry.Lookup(uri)
	if !ok {
		return
	}
	w.trees.Remove(id)
	w.tags.DeleteFile(id)
	delete(w.hashes, id)
	w.registry.Forget(uri)
}

func (w *Workspace) markup(uri string) (syntax.FileID, bool) {
	id, ok := w.registry.Lookup(uri)
	if !ok {
		return 0, false
	}
	_, ok = w.trees.Tree(id, grammar.Markup)
	return id, ok
}

// Resolve classifies point inside a markup document.
func (w *Workspace) Resolve(uri string, point sitter.Point, mode position.Mode) (position.SemanticPosition, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.set == nil {
		return position.SemanticPosition{}, false
	}
	id, ok := w.markup(uri)
	if !ok {
		return position.SemanticPosition{}, false
	}
	tree, _ := w.trees.Tree(id, grammar.Markup)
	src, _ := w.trees.Source(id, grammar.Markup)
	return position.Resolve(tree.RootNode(), src, point, mode, w.set)
}

func (w *Workspace) Definition(uri string, point sitter.Point) (linker.Location, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id, ok := w.markup(uri)
	if !ok || w.cfg == nil {
		return linker.Location{}, false
	}
	return w.linker.Definition(id, point)
}

func (w *Workspace) Implementation(uri string, point sitter.Point) (linker.Location, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id, ok := w.markup(uri)
	if !ok || w.cfg == nil {
		return linker.Location{}, false
	}
	return w.linker.Implementation(id, point)
}

// OnReference reports whether point lies on a reference attribute.
func (w *Workspace) OnReference(uri string, point sitter.Point) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	id, ok := w.markup(uri)
	if !ok || w.cfg == nil {
		return false
	}
	_, ok = w.linker.ReferenceAt(id, point)
	return ok
}

// References lists the reference tokens naming the anchor under point in a
// script or backend file.
func (w *Workspace) References(uri string, point sitter.Point) []linker.Location {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cfg == nil {
		return nil
	}
	lang, ok := w.classify(document.Path(uri))
	if !ok || lang == grammar.Markup {
		return nil
	}
	id, ok := w.registry.Lookup(uri)
	if !ok {
		return nil
	}
	return w.linker.References(id, lang, point)
}

// Diagnostics groups rejected tags by file URI.
func (w *Workspace) Diagnostics(rejected []tags.Tag) map[string][]linker.Diagnostic {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.linker.Diagnostics(rejected)
}

// Tags returns every bound tag.
func (w *Workspace) Tags() []tags.Tag {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tags.All()
}

func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.set == nil {
		return
	}
	w.resetLocked()
	w.set.Close()
	w.set = nil
}

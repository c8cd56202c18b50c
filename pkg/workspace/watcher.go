package workspace

import (
	"context"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/hxlsp/pkg/config"
	"github.com/walteh/hxlsp/pkg/document"
	"github.com/walteh/hxlsp/pkg/grammar"
	"github.com/walteh/hxlsp/pkg/tags"
	"gitlab.com/tozd/go/errors"
)

// ChangeFunc receives the duplicates found when a file changed on disk. A
// removed file reports with a nil slice so stale diagnostics get cleared.
type ChangeFunc func(ctx context.Context, uri string, rejected []tags.Tag)

// Watcher keeps files that are not open in the editor in sync with disk.
type Watcher struct {
	ws       *Workspace
	fsw      *fsnotify.Watcher
	isOpen   func(uri string) bool
	onChange ChangeFunc
}

// NewWatcher builds a watcher without starting it. isOpen lets buffers the
// editor owns take precedence over disk.
func NewWatcher(ws *Workspace, isOpen func(uri string) bool, onChange ChangeFunc) *Watcher {
	return &Watcher{ws: ws, isOpen: isOpen, onChange: onChange}
}

// Start adds a watch to every directory under the configured roots.
func (wt *Watcher) Start(ctx context.Context) error {
	wt.ws.mu.Lock()
	cfg := wt.ws.cfg
	wt.ws.mu.Unlock()
	if cfg == nil {
		return config.ErrNotFound
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Errorf("creating file watcher: %w", err)
	}
	wt.fsw = fsw

	for lang := grammar.Markup; lang < grammar.NumLanguages; lang++ {
		for _, dir := range cfg.Dirs(lang) {
			wt.addTree(ctx, dir)
		}
	}
	return nil
}

func (wt *Watcher) addTree(ctx context.Context, root string) {
	_ = afero.Walk(wt.ws.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		if err := wt.fsw.Add(path); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("failed to watch directory")
		}
		return nil
	})
}

// Run processes events until ctx is done or the watcher is closed.
func (wt *Watcher) Run(ctx context.Context) error {
	if wt.fsw == nil {
		return errors.New("watcher not started")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-wt.fsw.Events:
			if !ok {
				return nil
			}
			wt.HandleEvent(ctx, event)
		case err, ok := <-wt.fsw.Errors:
			if !ok {
				return nil
			}
			zerolog.Ctx(ctx).Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (wt *Watcher) Close() error {
	if wt.fsw == nil {
		return nil
	}
	return wt.fsw.Close()
}

// HandleEvent applies one file system event to the workspace.
func (wt *Watcher) HandleEvent(ctx context.Context, event fsnotify.Event) {
	path := absPath(event.Name)
	uri := document.URI(path)
	logger := zerolog.Ctx(ctx).With().Str("path", path).Str("op", event.Op.String()).Logger()

	if wt.isOpen != nil && wt.isOpen(uri) {
		return
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if _, err := wt.ws.fs.Stat(path); err == nil {
			return
		}
		wt.ws.Forget(uri)
		logger.Debug().Msg("file removed")
		if wt.onChange != nil {
			wt.onChange(ctx, uri, nil)
		}
		return
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	info, err := wt.ws.fs.Stat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) && wt.fsw != nil {
			wt.addTree(ctx, path)
		}
		return
	}

	rejected, changed, err := wt.ws.refresh(ctx, uri, path)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to refresh file")
		return
	}
	if !changed {
		return
	}
	logger.Debug().Int("duplicates", len(rejected)).Msg("file refreshed from disk")
	if wt.onChange != nil {
		wt.onChange(ctx, uri, rejected)
	}
}

// refresh reloads path when its content hash moved. Files outside every slot
// or excluded by configuration are ignored.
func (w *Workspace) refresh(ctx context.Context, uri, path string) ([]tags.Tag, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.set == nil {
		return nil, false, ErrClosed
	}
	if w.cfg == nil || w.cfg.Excluded(path) {
		return nil, false, nil
	}
	lang, ok := w.cfg.Classify(path)
	if !ok {
		return nil, false, nil
	}

	src, err := afero.ReadFile(w.fs, path)
	if err != nil {
		return nil, false, errors.Errorf("reading %s: %w", path, err)
	}
	if id, ok := w.registry.Lookup(uri); ok {
		if sum, ok := w.hashes[id]; ok && sum == xxhash.Sum64(src) {
			return nil, false, nil
		}
	}

	rejected, err := w.loadLocked(ctx, uri, lang, src)
	if err != nil {
		return nil, false, err
	}
	return rejected, true, nil
}

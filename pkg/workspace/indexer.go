package workspace

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/hxlsp/pkg/document"
	"github.com/walteh/hxlsp/pkg/grammar"
	"github.com/walteh/hxlsp/pkg/tags"
	"gitlab.com/tozd/go/errors"
)

var ErrWalk = errors.New("walking directory")

// indexLocked resets the workspace and loads every file under the configured
// directories whose extension matches the directory's slot. The first walk
// error aborts the pass; files loaded before it stay indexed.
func (w *Workspace) indexLocked(ctx context.Context) ([]tags.Tag, error) {
	w.resetLocked()

	var rejected []tags.Tag
	for lang := grammar.Markup; lang < grammar.NumLanguages; lang++ {
		for _, dir := range w.cfg.Dirs(lang) {
			err := afero.Walk(w.fs, dir, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return errors.Errorf("%w %s: %w", ErrWalk, path, err)
				}
				if info.IsDir() || !info.Mode().IsRegular() {
					return nil
				}
				if w.cfg.Excluded(path) {
					return nil
				}
				if got, ok := w.cfg.Classify(path); !ok || got != lang {
					return nil
				}

				src, err := afero.ReadFile(w.fs, path)
				if err != nil {
					return errors.Errorf("%w %s: %w", ErrWalk, path, err)
				}
				lost, err := w.loadLocked(ctx, document.URI(absPath(path)), lang, src)
				if err != nil {
					zerolog.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("skipping unparsable file")
					return nil
				}
				rejected = append(rejected, lost...)
				return nil
			})
			if err != nil {
				return rejected, err
			}
		}
	}

	zerolog.Ctx(ctx).Info().
		Int("files", w.registry.Len()).
		Int("tags", w.tags.Len()).
		Int("duplicates", len(rejected)).
		Msg("workspace indexed")

	return rejected, nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

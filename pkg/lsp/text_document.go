package lsp

import (
	"context"

	"github.com/rs/zerolog"
	glsp "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/hxlsp/pkg/document"
	"github.com/walteh/hxlsp/pkg/syntax"
	"gitlab.com/tozd/go/errors"
)

func (s *Server) DidOpen(ctx context.Context, params *glsp.DidOpenTextDocumentParams) error {
	uri := document.NormalizeURI(params.TextDocument.URI)
	zerolog.Ctx(ctx).Debug().Str("uri", uri).Msg("document opened")

	buf := s.documents.Open(uri, params.TextDocument.Text, params.TextDocument.Version)
	if err := s.workspace.Open(ctx, uri, buf.Text()); err != nil {
		return errors.Errorf("opening document: %w", err)
	}
	return nil
}

// DidChange applies the client's splices to the buffer in order. When any
// change replaces the whole document the final text is parsed fresh,
// otherwise the tree is reparsed incrementally.
func (s *Server) DidChange(ctx context.Context, params *glsp.DidChangeTextDocumentParams) error {
	uri := document.NormalizeURI(params.TextDocument.URI)
	version := params.TextDocument.Version

	buf, ok := s.documents.Get(uri)
	if !ok {
		zerolog.Ctx(ctx).Debug().Str("uri", uri).Msg("change for a document that is not open")
		return nil
	}

	var edits []syntax.Edit
	reopen := false
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case glsp.TextDocumentContentChangeEvent:
			edit, err := buf.ApplyEdit(toPoint(c.Range.Start), toPoint(c.Range.End), c.Text, version)
			if err != nil {
				return errors.Errorf("applying change to %s: %w", uri, err)
			}
			edits = append(edits, edit)
		case glsp.TextDocumentContentChangeEventWhole:
			buf.Replace(c.Text, version)
			edits = nil
			reopen = true
		}
	}

	// the fresh parse already covers splices that followed a whole change
	if reopen {
		if err := s.workspace.Open(ctx, uri, buf.Text()); err != nil {
			return errors.Errorf("reparsing %s: %w", uri, err)
		}
		return nil
	}
	if len(edits) == 0 {
		return nil
	}
	if err := s.workspace.Edit(ctx, uri, buf.Text(), edits...); err != nil {
		return errors.Errorf("reparsing %s: %w", uri, err)
	}
	return nil
}

func (s *Server) DidSave(ctx context.Context, params *glsp.DidSaveTextDocumentParams) error {
	uri := document.NormalizeURI(params.TextDocument.URI)

	var text string
	switch buf, ok := s.documents.Get(uri); {
	case params.Text != nil:
		text = *params.Text
		if ok {
			buf.Replace(text, buf.Version())
		}
	case ok:
		text = buf.Text()
	default:
		return errors.Errorf("document not found: %s", uri)
	}

	rejected, err := s.workspace.Save(ctx, uri, text)
	if err != nil {
		return errors.Errorf("saving %s: %w", uri, err)
	}

	zerolog.Ctx(ctx).Debug().Str("uri", uri).Int("duplicates", len(rejected)).Msg("document saved")

	s.publishFile(ctx, uri, rejected)
	return nil
}

// DidClose drops the buffer. The parsed tree stays so closed templates keep
// answering cross-file queries.
func (s *Server) DidClose(ctx context.Context, params *glsp.DidCloseTextDocumentParams) error {
	s.documents.Close(params.TextDocument.URI)
	return nil
}

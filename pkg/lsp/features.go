package lsp

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	glsp "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/hxlsp/pkg/config"
	"github.com/walteh/hxlsp/pkg/document"
	"github.com/walteh/hxlsp/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// completionTriggered reports whether a completion request should be
// answered. Helix sends no trigger context so it is always let through.
func (s *Server) completionTriggered(c *glsp.CompletionContext) bool {
	if c != nil {
		switch c.TriggerKind {
		case glsp.CompletionTriggerKindInvoked, glsp.CompletionTriggerKindTriggerCharacter:
			return true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canComplete
}

func (s *Server) Completion(ctx context.Context, params *glsp.CompletionParams) ([]glsp.CompletionItem, error) {
	if !s.completionTriggered(params.Context) {
		return nil, nil
	}
	uri := document.NormalizeURI(params.TextDocument.URI)
	if !s.workspace.IsTemplate(uri) {
		return nil, nil
	}

	pos, ok := s.workspace.Resolve(uri, toPoint(params.Position), position.Completion)
	if !ok {
		return nil, nil
	}
	zerolog.Ctx(ctx).Trace().Stringer("position", pos).Msg("completion")

	switch pos.Kind {
	case position.AttributeName:
		if !strings.HasPrefix(pos.Name, s.dict.Prefix()) {
			return nil, nil
		}
		attrs := s.dict.Attributes()
		items := make([]glsp.CompletionItem, 0, len(attrs))
		for _, a := range attrs {
			items = append(items, glsp.CompletionItem{
				Label:         a.Name,
				Kind:          ptr(glsp.CompletionItemKindText),
				Documentation: markdown(a.Desc),
			})
		}
		return items, nil
	case position.AttributeValue:
		values := s.dict.ValuesFor(pos.Name)
		if len(values) == 0 {
			return nil, nil
		}
		items := make([]glsp.CompletionItem, 0, len(values))
		for _, v := range values {
			items = append(items, glsp.CompletionItem{
				Label:  v.Name,
				Detail: ptr(v.Desc),
				Kind:   ptr(glsp.CompletionItemKindText),
			})
		}
		return items, nil
	}
	return nil, nil
}

func (s *Server) Hover(ctx context.Context, params *glsp.HoverParams) (*glsp.Hover, error) {
	uri := document.NormalizeURI(params.TextDocument.URI)
	pos, ok := s.workspace.Resolve(uri, toPoint(params.Position), position.Hover)
	if !ok {
		return nil, nil
	}
	zerolog.Ctx(ctx).Trace().Stringer("position", pos).Msg("hover")

	switch pos.Kind {
	case position.AttributeName:
		if entry, ok := s.dict.Attribute(pos.Name); ok {
			return &glsp.Hover{Contents: markdown(entry.Desc)}, nil
		}
	case position.AttributeValue:
		if entry, ok := s.dict.Value(pos.Name, pos.Value); ok {
			return &glsp.Hover{Contents: markdown(entry.Desc)}, nil
		}
	}
	return nil, nil
}

func (s *Server) Definition(ctx context.Context, params *glsp.DefinitionParams) (*glsp.Location, error) {
	loc, ok := s.workspace.Definition(document.NormalizeURI(params.TextDocument.URI), toPoint(params.Position))
	if !ok {
		return nil, nil
	}
	out := toLocation(loc)
	return &out, nil
}

func (s *Server) Implementation(ctx context.Context, params *glsp.ImplementationParams) (*glsp.Location, error) {
	loc, ok := s.workspace.Implementation(document.NormalizeURI(params.TextDocument.URI), toPoint(params.Position))
	if !ok {
		return nil, nil
	}
	out := toLocation(loc)
	return &out, nil
}

func (s *Server) References(ctx context.Context, params *glsp.ReferenceParams) ([]glsp.Location, error) {
	locs := s.workspace.References(document.NormalizeURI(params.TextDocument.URI), toPoint(params.Position))
	if len(locs) == 0 {
		return nil, nil
	}
	out := make([]glsp.Location, 0, len(locs))
	for _, loc := range locs {
		out = append(out, toLocation(loc))
	}
	return out, nil
}

func (s *Server) CodeAction(ctx context.Context, params *glsp.CodeActionParams) ([]glsp.CodeAction, error) {
	if !s.workspace.OnReference(document.NormalizeURI(params.TextDocument.URI), toPoint(params.Range.Start)) {
		return nil, nil
	}
	return []glsp.CodeAction{{
		Title: ResetTagsTitle,
		Kind:  ptr(glsp.CodeActionKindEmpty),
		Command: &glsp.Command{
			Title:   ResetTags,
			Command: ResetTags,
		},
	}}, nil
}

func (s *Server) ExecuteCommand(ctx context.Context, params *glsp.ExecuteCommandParams) (any, error) {
	if params.Command != ResetTags {
		zerolog.Ctx(ctx).Debug().Str("command", params.Command).Msg("unknown command")
		return nil, nil
	}

	rejected, err := s.workspace.Reindex(ctx)
	if errors.Is(err, config.ErrNotFound) {
		return nil, nil
	}
	s.reopenDocuments(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("resetting tags")
		return nil, nil
	}
	s.publishAll(ctx, rejected)
	return nil, nil
}

func markdown(text string) glsp.MarkupContent {
	return glsp.MarkupContent{Kind: glsp.MarkupKindMarkdown, Value: text}
}

package lsp

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	glsp "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/hxlsp/pkg/linker"
	"github.com/walteh/hxlsp/pkg/tags"
)

// publishAll publishes the duplicate tags of a full indexing pass and clears
// every file that no longer has any.
func (s *Server) publishAll(ctx context.Context, rejected []tags.Tag) {
	byURI := s.workspace.Diagnostics(rejected)

	s.mu.Lock()
	uris := make([]string, 0, len(byURI)+len(s.diagnosed))
	for uri := range s.diagnosed {
		if _, ok := byURI[uri]; !ok {
			uris = append(uris, uri)
		}
	}
	for uri := range byURI {
		uris = append(uris, uri)
	}
	s.mu.Unlock()

	sort.Strings(uris)
	for _, uri := range uris {
		s.publish(ctx, uri, byURI[uri])
	}
}

// publishFile always publishes for uri, so fixing the last duplicate clears
// the editor.
func (s *Server) publishFile(ctx context.Context, uri string, rejected []tags.Tag) {
	s.publish(ctx, uri, s.workspace.Diagnostics(rejected)[uri])
}

func (s *Server) publish(ctx context.Context, uri string, diags []linker.Diagnostic) {
	s.mu.Lock()
	if len(diags) == 0 {
		delete(s.diagnosed, uri)
	} else {
		s.diagnosed[uri] = true
	}
	s.mu.Unlock()

	if s.callbackClient == nil {
		return
	}

	out := make([]glsp.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, glsp.Diagnostic{
			Range:    toRange(d.Start, d.End),
			Severity: ptr(glsp.DiagnosticSeverityWarning),
			Source:   ptr(linker.DiagnosticSource),
			Message:  d.Message,
		})
	}

	err := s.callbackClient.PublishDiagnostics(ctx, &glsp.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: out,
	})
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("uri", uri).Msg("failed to publish diagnostics")
	}
}

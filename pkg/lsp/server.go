// Package lsp implements the htmx language server on top of the workspace.
package lsp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	glsp "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/hxlsp/pkg/config"
	"github.com/walteh/hxlsp/pkg/document"
	"github.com/walteh/hxlsp/pkg/htmx"
	"github.com/walteh/hxlsp/pkg/lsp/protocol"
	"github.com/walteh/hxlsp/pkg/workspace"
	"gitlab.com/tozd/go/errors"
)

const (
	ServerName     = "htmx-lsp"
	ServerVersion  = "0.1.3"
	ResetTags      = "reset_tags"
	ResetTagsTitle = "Reset tags"

	helixClient = "helix"
)

var _ protocol.Server = (*Server)(nil)

type Server struct {
	workspace *workspace.Workspace
	documents *document.Store
	dict      *htmx.Dictionary

	mu sync.RWMutex
	// pending is the validated configuration received in initialize. It is
	// installed into the workspace by initialized.
	pending     *config.Config
	canComplete bool
	diagnosed   map[string]bool

	watch       bool
	watcher     *workspace.Watcher
	stopWatcher context.CancelFunc
	watcherDone chan struct{}

	callbackClient *protocol.CallbackClient
}

type Option func(*Server)

// WithWatch keeps files that are not open in sync with disk after the
// workspace is configured.
func WithWatch(watch bool) Option {
	return func(s *Server) {
		s.watch = watch
	}
}

func NewServer(fs afero.Fs, opts ...Option) (*Server, error) {
	dict, err := htmx.Load()
	if err != nil {
		return nil, errors.Errorf("loading directive dictionary: %w", err)
	}
	ws, err := workspace.New(fs)
	if err != nil {
		return nil, errors.Errorf("creating workspace: %w", err)
	}
	s := &Server{
		workspace: ws,
		documents: document.NewStore(),
		dict:      dict,
		diagnosed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BuildServerInstance binds s to a new jrpc2 server. The caller starts it on
// a channel.
func (s *Server) BuildServerInstance(ctx context.Context, opts *jrpc2.ServerOptions) *jrpc2.Server {
	srv, client := protocol.NewServerServer(ctx, s, opts)
	s.callbackClient = client
	return srv
}

func (s *Server) Documents() *document.Store {
	return s.documents
}

func (s *Server) Workspace() *workspace.Workspace {
	return s.workspace
}

func (s *Server) logToClient(ctx context.Context, typ glsp.MessageType, msg string) {
	if s.callbackClient == nil {
		return
	}
	if err := s.callbackClient.LogMessage(ctx, typ, msg); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("failed to send log message")
	}
}

func (s *Server) Initialize(ctx context.Context, params *glsp.InitializeParams) (*glsp.InitializeResult, error) {
	logger := zerolog.Ctx(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if params.ClientInfo != nil {
		logger.Debug().Str("client", params.ClientInfo.Name).Msg("client connected")
		if params.ClientInfo.Name == helixClient {
			s.canComplete = true
		}
	}

	cfg, err := decodeConfig(params)
	switch {
	case errors.Is(err, config.ErrNotFound):
		s.logToClient(ctx, glsp.MessageTypeInfo, "Config not found")
	case err != nil:
		logger.Warn().Err(err).Msg("configuration rejected, running without cross-file features")
	default:
		s.pending = cfg
	}

	return &glsp.InitializeResult{
		Capabilities: s.capabilities(s.pending != nil),
		ServerInfo: &glsp.InitializeResultServerInfo{
			Name:    ServerName,
			Version: ptr(ServerVersion),
		},
	}, nil
}

func decodeConfig(params *glsp.InitializeParams) (*config.Config, error) {
	if params.InitializationOptions == nil {
		return nil, config.ErrNotFound
	}
	raw, err := json.Marshal(params.InitializationOptions)
	if err != nil {
		return nil, errors.Errorf("encoding initialization options: %w", err)
	}
	cfg, err := config.Decode(raw)
	if err != nil {
		return nil, err
	}
	switch {
	case params.RootURI != nil && *params.RootURI != "":
		cfg.Root = document.Path(*params.RootURI)
	case params.RootPath != nil:
		cfg.Root = *params.RootPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Server) capabilities(configured bool) glsp.ServerCapabilities {
	caps := glsp.ServerCapabilities{
		TextDocumentSync: glsp.TextDocumentSyncOptions{
			OpenClose: ptr(true),
			Change:    ptr(glsp.TextDocumentSyncKindIncremental),
			Save:      glsp.SaveOptions{IncludeText: ptr(true)},
		},
		CompletionProvider: &glsp.CompletionOptions{
			ResolveProvider:   ptr(false),
			TriggerCharacters: []string{"-", "\"", " "},
		},
		HoverProvider: true,
	}
	if configured {
		caps.DefinitionProvider = true
		caps.ReferencesProvider = true
		caps.CodeActionProvider = true
		caps.ImplementationProvider = true
		caps.ExecuteCommandProvider = &glsp.ExecuteCommandOptions{Commands: []string{ResetTags}}
	}
	return caps
}

func (s *Server) Initialized(ctx context.Context, params *glsp.InitializedParams) error {
	s.logToClient(ctx, glsp.MessageTypeInfo, "initialized!")

	s.mu.Lock()
	cfg := s.pending
	s.pending = nil
	s.mu.Unlock()

	if cfg == nil {
		return nil
	}

	rejected, err := s.workspace.Configure(ctx, cfg)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("indexing workspace")
	}
	s.reopenDocuments(ctx)
	s.publishAll(ctx, rejected)

	if s.watch {
		s.startWatcher(ctx)
	}
	return nil
}

// reopenDocuments parses open buffers again after the workspace dropped its
// state, so the editor's text wins over what was read from disk.
func (s *Server) reopenDocuments(ctx context.Context) {
	s.documents.Range(func(buf *document.Buffer) bool {
		if err := s.workspace.Open(ctx, buf.URI(), buf.Text()); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("uri", buf.URI()).Msg("reopening document")
		}
		return true
	})
}

func (s *Server) startWatcher(ctx context.Context) {
	watcher := workspace.NewWatcher(s.workspace, s.documents.IsOpen, s.publishFile)
	if err := watcher.Start(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("starting file watcher")
		return
	}

	// the watcher outlives the initialized request
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	s.mu.Lock()
	s.watcher, s.stopWatcher, s.watcherDone = watcher, cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if err := watcher.Run(wctx); err != nil {
			zerolog.Ctx(wctx).Warn().Err(err).Msg("file watcher stopped")
		}
	}()
}

func (s *Server) closeWatcher() {
	s.mu.Lock()
	watcher, cancel, done := s.watcher, s.stopWatcher, s.watcherDone
	s.watcher, s.stopWatcher, s.watcherDone = nil, nil, nil
	s.mu.Unlock()

	if watcher == nil {
		return
	}
	cancel()
	_ = watcher.Close()
	<-done
}

func (s *Server) Shutdown(ctx context.Context) error {
	zerolog.Ctx(ctx).Debug().Msg("shutting down")
	s.closeWatcher()
	return nil
}

func (s *Server) Exit(ctx context.Context) error {
	s.closeWatcher()
	s.workspace.Close()
	if srv := jrpc2.ServerFromContext(ctx); srv != nil {
		go srv.Stop()
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

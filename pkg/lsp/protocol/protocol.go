// Package protocol binds the language server methods to a jrpc2 server and
// carries the helpers shared by every handler.
package protocol

import (
	"context"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	glsp "github.com/tliron/glsp/protocol_3_16"
)

const (
	MethodPublishDiagnostics = "textDocument/publishDiagnostics"
	MethodLogMessage         = "window/logMessage"
)

// Server is the set of methods the language server answers.
type Server interface {
	Initialize(ctx context.Context, params *glsp.InitializeParams) (*glsp.InitializeResult, error)
	Initialized(ctx context.Context, params *glsp.InitializedParams) error
	Shutdown(ctx context.Context) error
	Exit(ctx context.Context) error

	DidOpen(ctx context.Context, params *glsp.DidOpenTextDocumentParams) error
	DidChange(ctx context.Context, params *glsp.DidChangeTextDocumentParams) error
	DidSave(ctx context.Context, params *glsp.DidSaveTextDocumentParams) error
	DidClose(ctx context.Context, params *glsp.DidCloseTextDocumentParams) error

	Completion(ctx context.Context, params *glsp.CompletionParams) ([]glsp.CompletionItem, error)
	Hover(ctx context.Context, params *glsp.HoverParams) (*glsp.Hover, error)
	Definition(ctx context.Context, params *glsp.DefinitionParams) (*glsp.Location, error)
	References(ctx context.Context, params *glsp.ReferenceParams) ([]glsp.Location, error)
	Implementation(ctx context.Context, params *glsp.ImplementationParams) (*glsp.Location, error)
	CodeAction(ctx context.Context, params *glsp.CodeActionParams) ([]glsp.CodeAction, error)
	ExecuteCommand(ctx context.Context, params *glsp.ExecuteCommandParams) (any, error)
}

func buildServerDispatchMap(server Server) handler.Map {
	return handler.Map{
		glsp.MethodInitialize:  createHandler(server.Initialize),
		glsp.MethodInitialized: createEmptyResultHandler(server.Initialized),
		glsp.MethodShutdown:    createEmptyHandler(server.Shutdown),
		glsp.MethodExit:        createEmptyHandler(server.Exit),
		glsp.MethodCancelRequest: handler.New(func(ctx context.Context, req *jrpc2.Request) (any, error) {
			return nil, nil
		}),

		glsp.MethodTextDocumentDidOpen:   createEmptyResultHandler(server.DidOpen),
		glsp.MethodTextDocumentDidChange: createEmptyResultHandler(server.DidChange),
		glsp.MethodTextDocumentDidSave:   createEmptyResultHandler(server.DidSave),
		glsp.MethodTextDocumentDidClose:  createEmptyResultHandler(server.DidClose),

		glsp.MethodTextDocumentCompletion:     createHandler(server.Completion),
		glsp.MethodTextDocumentHover:          createHandler(server.Hover),
		glsp.MethodTextDocumentDefinition:     createHandler(server.Definition),
		glsp.MethodTextDocumentReferences:     createHandler(server.References),
		glsp.MethodTextDocumentImplementation: createHandler(server.Implementation),
		glsp.MethodTextDocumentCodeAction:     createHandler(server.CodeAction),
		glsp.MethodWorkspaceExecuteCommand:    createHandler(server.ExecuteCommand),
	}
}

// CallbackClient sends server initiated notifications to the client.
type CallbackClient struct {
	serverOpts *jrpc2.ServerOptions
	client     *jrpc2.Server
}

func NewCallbackClient(server *jrpc2.Server, serverOpts *jrpc2.ServerOptions) *CallbackClient {
	return &CallbackClient{client: server, serverOpts: serverOpts}
}

func (c *CallbackClient) Notify(ctx context.Context, method string, params any) error {
	if rl, ok := c.serverOpts.RPCLog.(CallbackRPCLogger); ok {
		rl.LogCallbackRequestRaw(ctx, method, params)
	}
	return c.client.Notify(ctx, method, params)
}

func (c *CallbackClient) PublishDiagnostics(ctx context.Context, params *glsp.PublishDiagnosticsParams) error {
	return c.Notify(ctx, MethodPublishDiagnostics, params)
}

func (c *CallbackClient) LogMessage(ctx context.Context, typ glsp.MessageType, message string) error {
	return c.Notify(ctx, MethodLogMessage, &glsp.LogMessageParams{Type: typ, Message: message})
}

// CallbackRPCLogger is implemented by RPC loggers that also want to see
// server initiated traffic.
type CallbackRPCLogger interface {
	LogCallbackRequestRaw(ctx context.Context, method string, params any)
}

// NewServerServer wires server into a jrpc2 server. Every request context
// carries a logger that mirrors warnings to the client.
func NewServerServer(ctx context.Context, server Server, opts *jrpc2.ServerOptions) (*jrpc2.Server, *CallbackClient) {
	methods := buildServerDispatchMap(server)
	if opts == nil {
		opts = &jrpc2.ServerOptions{}
	}

	opts.AllowPush = true

	var callbackClient *CallbackClient

	opts.NewContext = func() context.Context {
		if callbackClient == nil {
			return ctx
		}
		return ApplyClientToZerolog(ctx, callbackClient)
	}

	result := jrpc2.NewServer(methods, opts)

	callbackClient = NewCallbackClient(result, opts)

	return result, callbackClient
}

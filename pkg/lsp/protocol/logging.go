package protocol

import (
	"context"

	"github.com/creachadair/jrpc2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	glsp "github.com/tliron/glsp/protocol_3_16"
)

// ServerID tags every log line of this process.
var ServerID = uuid.NewString()

func ApplyRequestToZerolog(ctx context.Context, req *jrpc2.Request) context.Context {
	return zerolog.Ctx(ctx).With().Str("rpc_method", req.Method()).Str("rpc_id", req.ID()).Logger().WithContext(ctx)
}

// ApplyClientToZerolog returns ctx with a logger that also forwards warnings
// and errors to the client as window/logMessage notifications.
func ApplyClientToZerolog(ctx context.Context, client *CallbackClient) context.Context {
	return zerolog.Ctx(ctx).With().
		Str("server_id", ServerID).
		Logger().
		Hook(&clientHook{client: client, ctx: ctx, min: zerolog.WarnLevel}).
		WithContext(ctx)
}

type clientHook struct {
	client *CallbackClient
	ctx    context.Context
	min    zerolog.Level
}

func (h *clientHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	if level < h.min || level == zerolog.NoLevel || msg == "" || h.client == nil {
		return
	}
	_ = h.client.LogMessage(h.ctx, ParseMessageTypeFromZerolog(level), msg)
}

// ParseMessageTypeFromZerolog converts a zerolog level to an LSP MessageType.
func ParseMessageTypeFromZerolog(level zerolog.Level) glsp.MessageType {
	switch level {
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return glsp.MessageTypeError
	case zerolog.WarnLevel:
		return glsp.MessageTypeWarning
	case zerolog.InfoLevel:
		return glsp.MessageTypeInfo
	default:
		return glsp.MessageTypeLog
	}
}

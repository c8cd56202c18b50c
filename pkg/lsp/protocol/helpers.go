package protocol

import (
	"context"
	"runtime/debug"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/rs/zerolog"
)

func NonNilSlice[T any](x []T) []T {
	if x == nil {
		return []T{}
	}
	return x
}

func newParseError(err error) *jrpc2.Error {
	return &jrpc2.Error{
		Code:    -32700, // Parse error
		Message: err.Error(),
	}
}

// recoverHandlerPanic turns a panic into an empty result so one bad request
// cannot take the server down.
func recoverHandlerPanic(ctx context.Context, result *any, err *error) {
	if x := recover(); x != nil {
		zerolog.Ctx(ctx).Error().
			Interface("panic", x).
			Str("stack", string(debug.Stack())).
			Msg("recovered from panic in handler")
		*result, *err = nil, nil
	}
}

func createHandler[T any, O any](method func(ctx context.Context, params *T) (O, error)) handler.Func {
	return handler.New(func(ctx context.Context, r *jrpc2.Request) (result any, err error) {
		ctx = ApplyRequestToZerolog(ctx, r)
		defer recoverHandlerPanic(ctx, &result, &err)

		var params T
		if err := r.UnmarshalParams(&params); err != nil {
			return nil, newParseError(err)
		}
		out, err := method(ctx, &params)
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

func createEmptyResultHandler[T any](method func(ctx context.Context, params *T) error) handler.Func {
	return handler.New(func(ctx context.Context, r *jrpc2.Request) (result any, err error) {
		ctx = ApplyRequestToZerolog(ctx, r)
		defer recoverHandlerPanic(ctx, &result, &err)

		var params T
		if err := r.UnmarshalParams(&params); err != nil {
			return nil, newParseError(err)
		}
		return nil, method(ctx, &params)
	})
}

func createEmptyHandler(method func(ctx context.Context) error) handler.Func {
	return handler.New(func(ctx context.Context, r *jrpc2.Request) (result any, err error) {
		ctx = ApplyRequestToZerolog(ctx, r)
		defer recoverHandlerPanic(ctx, &result, &err)
		return nil, method(ctx)
	})
}

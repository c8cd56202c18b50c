package serve_lsp

import (
	"context"
	"io"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/hxlsp/pkg/debug"
	"github.com/walteh/hxlsp/pkg/lsp"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	level   string
	logFile string
	watch   bool
}

func NewServeLSPCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdio",
	}

	cmd.Flags().StringVar(&me.level, "level", "info", "log level (trace, debug, info, warn, error)")
	cmd.Flags().StringVar(&me.logFile, "log-file", "", "write logs to this file instead of stderr")
	cmd.Flags().BoolVar(&me.watch, "watch", false, "reindex tag files that change on disk while closed in the editor")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

type RPCLogger struct {
}

func (me *RPCLogger) LogRequest(ctx context.Context, req *jrpc2.Request) {
	zerolog.Ctx(ctx).Debug().Str("rpc_params", req.ParamString()).Str("rpc_id", req.ID()).Str("rpc_method", req.Method()).Msg("client request")
}

func (me *RPCLogger) LogResponse(ctx context.Context, res *jrpc2.Response) {
	zerolog.Ctx(ctx).Debug().Str("rpc_result", res.ResultString()).Str("rpc_id", res.ID()).Msg("server response")
}

func (me *RPCLogger) LogCallbackRequestRaw(ctx context.Context, method string, params any) {
	zerolog.Ctx(ctx).Trace().Str("rpc_method", method).Interface("rpc_params", params).Msg("server notification")
}

func (me *Handler) logger() (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(me.level)
	if err != nil {
		return zerolog.Logger{}, nil, errors.Errorf("parsing log level: %w", err)
	}

	if me.logFile == "" {
		return debug.NewLogger(os.Stderr, level, isatty.IsTerminal(os.Stderr.Fd())), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(me.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, errors.Errorf("opening log file: %w", err)
	}
	return debug.NewLogger(f, level, false), f, nil
}

func (me *Handler) Run(ctx context.Context) error {
	logger, closer, err := me.logger()
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx = logger.WithContext(ctx)

	server, err := lsp.NewServer(afero.NewOsFs(), lsp.WithWatch(me.watch))
	if err != nil {
		return errors.Errorf("creating language server: %w", err)
	}

	opts := &jrpc2.ServerOptions{
		RPCLog: &RPCLogger{},
	}

	instance := server.BuildServerInstance(ctx, opts).Start(channel.LSP(os.Stdin, os.Stdout))

	zerolog.Ctx(ctx).Info().Bool("watch", me.watch).Msg("language server started")

	if err := instance.Wait(); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}

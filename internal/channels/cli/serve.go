package cli

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"

	httpchannel "candybowl/internal/channels/http"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the 'serve' command, the HTTP front door with an
// in-process session manager.
func NewServeCmd(opts *Options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat server",
		Long: `Start the JSON chat API (GET /chat/request, /chat/haggle, /chat/restock
and POST /chat/message) backed by the hosted model and the local ledger.`,
		Example: `  candybowl serve
  candybowl serve --addr 0.0.0.0:5000
  candybowl --config candybowl.yaml serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, addr, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (defaults to server.bind_address:server.port)")

	return cmd
}

func runServe(ctx context.Context, opts *Options, addr string, logOut io.Writer) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, logOut)
	if addr == "" {
		addr = net.JoinHostPort(cfg.Server.BindAddress, strconv.Itoa(cfg.Server.Port))
	}

	svc, err := newService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("close service", "error", err)
		}
	}()

	srv := httpchannel.NewServer(httpchannel.Config{
		Addr:   addr,
		Chats:  svc.manager,
		Logger: logger,
	})
	err = srv.ListenAndServe(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("http server stopped")
		return nil
	}
	return err
}

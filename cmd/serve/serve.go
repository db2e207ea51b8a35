// Package serve provides the "invoicechat serve" command.
package serve

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klytics/invoicechat/internal/app"
	"github.com/klytics/invoicechat/internal/cli"
	"github.com/klytics/invoicechat/internal/web"
)

// NewCommand returns the serve command.
func NewCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web chat",
		Long:  "Prepares the invoice data, builds the agent and serves the chat page with its JSON API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := cli.Setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			cli.DangerBanner(cmd.ErrOrStderr(), cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.Bootstrap(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			a.Background(ctx)

			router := web.NewRouter(a.Sessions, web.Options{AllowedOrigins: cfg.Server.AllowedOrigins, Logger: log})
			log.Info("web chat available", zap.String("url", "http://localhost"+cfg.Server.Addr))
			return web.Serve(ctx, cfg.Server.Addr, router, log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8501", "Listen address")
	return cmd
}

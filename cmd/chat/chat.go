// Package chat provides the "invoicechat chat" terminal chat command.
package chat

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/klytics/invoicechat/internal/app"
	"github.com/klytics/invoicechat/internal/cli"
	"github.com/klytics/invoicechat/internal/shell"
)

// NewCommand returns the chat command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat about the invoices in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := cli.Setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()
			cli.DangerBanner(cmd.ErrOrStderr(), cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := app.Bootstrap(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			a.Background(ctx)

			session, _, err := a.Sessions.Open(ctx, "")
			if err != nil {
				return err
			}
			return shell.New(session, cmd.OutOrStdout()).Run(ctx)
		},
	}
}

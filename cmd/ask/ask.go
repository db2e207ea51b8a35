// Package ask provides the one-shot "invoicechat ask" command.
package ask

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klytics/invoicechat/internal/app"
	"github.com/klytics/invoicechat/internal/cli"
	"github.com/klytics/invoicechat/internal/output"
)

// Answer is the --json payload.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// NewCommand returns the ask command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question about the invoices",
		Long:  "Runs a single turn against the invoice data and prints the answer.",
		Example: `  invoicechat ask "How many invoices are unpaid?"
  invoicechat ask --json "ما إجمالي مبلغ الضريبة؟"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := cli.Setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()
			cli.DangerBanner(cmd.ErrOrStderr(), cfg)

			question := strings.Join(args, " ")
			ctx := cmd.Context()

			a, err := app.Bootstrap(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			session, _, err := a.Sessions.Open(ctx, "")
			if err != nil {
				return err
			}
			defer session.End(ctx)

			entries, err := session.Submit(ctx, question)
			if err != nil {
				return err
			}
			answer := entries[len(entries)-1].Content

			if cli.JSON(cmd) {
				return output.WriteJSON(cmd.OutOrStdout(), "ask", Answer{Question: question, Answer: answer})
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}

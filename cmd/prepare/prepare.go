// Package prepare provides the "invoicechat prepare" command.
package prepare

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/invoicechat/internal/app"
	"github.com/klytics/invoicechat/internal/cli"
	"github.com/klytics/invoicechat/internal/dataset"
	"github.com/klytics/invoicechat/internal/output"
)

// Result is the --json payload.
type Result struct {
	Spreadsheet string `json:"spreadsheet"`
	CSV         string `json:"csv"`
	Created     bool   `json:"created"`
	Rows        int    `json:"rows"`
	Columns     int    `json:"columns"`
}

// NewCommand returns the prepare command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Check the credential and build the CSV cache",
		Long: `Runs the first two startup steps only: the credential check and the
CSV cache. An existing cache is reused as is; delete it to rebuild it from
the spreadsheet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := cli.Setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			created, err := app.Prepare(cfg, log)
			if err != nil {
				return err
			}
			table, err := dataset.Load(cfg.Data.CSV)
			if err != nil {
				return err
			}

			res := Result{
				Spreadsheet: cfg.Data.Spreadsheet,
				CSV:         cfg.Data.CSV,
				Created:     created,
				Rows:        len(table.Rows),
				Columns:     len(table.Headers),
			}
			if cli.JSON(cmd) {
				return output.WriteJSON(cmd.OutOrStdout(), "prepare", res)
			}

			green := color.New(color.FgGreen).SprintFunc()
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Created %s from %s\n", green("✓"), res.CSV, res.Spreadsheet)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Using existing %s\n", green("✓"), res.CSV)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %d rows, %d columns\n", res.Rows, res.Columns)
			return nil
		},
	}
}

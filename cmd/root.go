// Package cmd contains all CLI commands for the invoicechat binary.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/invoicechat/cmd/ask"
	"github.com/klytics/invoicechat/cmd/chat"
	cmdconfig "github.com/klytics/invoicechat/cmd/config"
	"github.com/klytics/invoicechat/cmd/doctor"
	"github.com/klytics/invoicechat/cmd/prepare"
	"github.com/klytics/invoicechat/cmd/serve"
	"github.com/klytics/invoicechat/cmd/version"
	"github.com/klytics/invoicechat/internal/cli"
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "invoicechat",
		Short: "Chat with your invoice spreadsheet",
		Long: `invoicechat — a digital assistant for invoice data.

Loads the invoice workbook, caches it as CSV and answers questions about it
through a web chat, a terminal chat or one-shot commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				color.NoColor = true
			}
		},
	}

	cli.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(serve.NewCommand())
	rootCmd.AddCommand(chat.NewCommand())
	rootCmd.AddCommand(ask.NewCommand())
	rootCmd.AddCommand(prepare.NewCommand())
	rootCmd.AddCommand(doctor.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and handles any returned errors.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

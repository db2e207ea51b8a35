// Package config provides CLI commands for inspecting the configuration.
package config

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/invoicechat/internal/cli"
	"github.com/klytics/invoicechat/internal/config"
	"github.com/klytics/invoicechat/internal/output"
)

// NewCommand returns the config command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect invoicechat configuration",
		Long:  "Show the effective configuration, where it is read from, and whether it is valid.",
	}

	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newPathCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.Load(cmd)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the default config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.ConfigPath())
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.Load(cmd)
			if err != nil {
				return err
			}
			issues := cfg.Validate()

			if cli.JSON(cmd) {
				return output.WriteJSON(cmd.OutOrStdout(), "config validate", issues)
			}

			errCount := 0
			for _, issue := range issues {
				switch issue.Severity {
				case "error":
					errCount++
					color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "  ✗ %s: %s\n", issue.Key, issue.Message)
					if issue.Fix != "" {
						fmt.Fprintf(cmd.OutOrStdout(), "      fix: %s\n", issue.Fix)
					}
				case "warning":
					color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "  ! %s: %s\n", issue.Key, issue.Message)
				default:
					color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "  ✓ %s: %s\n", issue.Key, issue.Message)
				}
			}
			if errCount > 0 {
				return fmt.Errorf("%d configuration error(s)", errCount)
			}
			return nil
		},
	}
}

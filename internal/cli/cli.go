// Package cli holds the flags and startup steps shared by every command.
package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klytics/invoicechat/internal/agent"
	"github.com/klytics/invoicechat/internal/config"
	"github.com/klytics/invoicechat/internal/logging"
)

// AddGlobalFlags registers the persistent flags on the root command.
func AddGlobalFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.String("config", "", "Config file (default ~/.invoicechat/config.yaml)")
	f.String("env-file", ".env", "Dotenv file to load before reading the environment")
	f.String("provider", "", "Model provider override: openai | ollama")
	f.String("model", "", "Model name override")
	f.String("csv", "", "CSV cache path override")
	f.String("spreadsheet", "", "Spreadsheet path override")
	f.Bool("allow-dangerous-code", false, "Let the agent execute model-written code on this host")
	f.String("log-level", "", "Log level: debug | info | warn | error")
	f.String("log-format", "", "Log format: console | json")
	f.Bool("verbose", false, "Enable debug logging")
	f.Bool("json", false, "Output as machine-readable JSON")
	f.Bool("no-color", false, "Disable ANSI color output")
}

// Load reads the configuration and applies flag overrides. Only flags the
// user actually set override config values.
func Load(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config")
	envFile, _ := flags.GetString("env-file")

	cfg, err := config.Load(config.LoadOptions{ConfigFile: configFile, EnvFile: envFile})
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"provider":    &cfg.Provider,
		"model":       &cfg.Model,
		"csv":         &cfg.Data.CSV,
		"spreadsheet": &cfg.Data.Spreadsheet,
		"log-level":   &cfg.Log.Level,
		"log-format":  &cfg.Log.Format,
	}
	for name, dst := range overrides {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	if flags.Changed("allow-dangerous-code") {
		cfg.Agent.AllowDangerousCode, _ = flags.GetBool("allow-dangerous-code")
	}
	if v, _ := flags.GetBool("verbose"); v {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// Setup loads the configuration and builds the logger.
func Setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := Load(cmd)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid logging config: %w", err)
	}
	return cfg, log, nil
}

// DangerBanner prints a red warning when code execution is enabled.
func DangerBanner(w io.Writer, cfg *config.Config) {
	if !cfg.Agent.AllowDangerousCode {
		return
	}
	fmt.Fprintln(w, color.New(color.FgRed, color.Bold).Sprint(agent.DangerousCodeWarning))
}

// JSON reports whether --json was given.
func JSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

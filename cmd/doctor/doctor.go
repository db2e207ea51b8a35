// Package doctor provides the "invoicechat doctor" command for checking the setup.
package doctor

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/invoicechat/internal/chat"
	"github.com/klytics/invoicechat/internal/cli"
	"github.com/klytics/invoicechat/internal/config"
	"github.com/klytics/invoicechat/internal/output"
)

// Check represents a single health check result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`
}

// NewCommand creates the "doctor" command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, data files and dependencies",
		Long:  "Run diagnostic checks to verify invoicechat is ready to answer questions.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.Load(cmd)
			if err != nil {
				return err
			}
			checks := RunChecks(cmd.Context(), cfg)

			errCount := 0
			for _, c := range checks {
				if c.Status == "error" {
					errCount++
				}
			}

			if cli.JSON(cmd) {
				if err := output.WriteJSON(cmd.OutOrStdout(), "doctor", checks); err != nil {
					return err
				}
			} else {
				printChecks(cmd, checks)
			}

			if errCount > 0 {
				return fmt.Errorf("%d check(s) failed", errCount)
			}
			return nil
		},
	}
}

func printChecks(cmd *cobra.Command, checks []Check) {
	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintln(out, "invoicechat doctor")
	fmt.Fprintln(out, "==================")
	fmt.Fprintln(out)

	okCount, warnCount, errCount := 0, 0, 0
	for _, c := range checks {
		var icon string
		switch c.Status {
		case "ok":
			icon = green("✓")
			okCount++
		case "warning":
			icon = yellow("!")
			warnCount++
		case "error":
			icon = red("✗")
			errCount++
		}
		fmt.Fprintf(out, "  %s %s: %s\n", icon, c.Name, c.Message)
		if c.Fix != "" && c.Status != "ok" {
			fmt.Fprintf(out, "      fix: %s\n", c.Fix)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)
}

// RunChecks inspects the runtime, the config issues and, for Redis sessions,
// the Redis connection.
func RunChecks(ctx context.Context, cfg *config.Config) []Check {
	checks := []Check{{
		Name:    "Go Runtime",
		Status:  "ok",
		Message: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}}

	if _, err := os.Stat(config.ConfigPath()); err == nil {
		checks = append(checks, Check{Name: "Config File", Status: "ok", Message: config.ConfigPath()})
	} else {
		checks = append(checks, Check{Name: "Config File", Status: "ok", Message: "not found, using defaults and environment"})
	}

	for _, issue := range cfg.Validate() {
		status := issue.Severity
		if status == "info" {
			status = "ok"
		}
		checks = append(checks, Check{Name: issue.Key, Status: status, Message: issue.Message, Fix: issue.Fix})
	}

	if cfg.Session.Backend == "redis" {
		checks = append(checks, redisCheck(ctx, cfg))
	}
	return checks
}

func redisCheck(ctx context.Context, cfg *config.Config) Check {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	r := cfg.Session.Redis
	store, err := chat.NewRedisStore(ctx, chat.RedisOptions{Addr: r.Addr, Password: r.Password, DB: r.DB}, cfg.Session.IdleTimeout)
	if err != nil {
		return Check{Name: "session.redis", Status: "error", Message: err.Error(), Fix: "start Redis at " + r.Addr + " or set session.backend to memory"}
	}
	store.Close()
	return Check{Name: "session.redis", Status: "ok", Message: "connected to " + r.Addr}
}

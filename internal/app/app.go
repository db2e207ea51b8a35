// Package app wires configuration, the CSV cache, the agent and chat sessions
// in startup order.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/klytics/invoicechat/internal/agent"
	"github.com/klytics/invoicechat/internal/ai"
	"github.com/klytics/invoicechat/internal/chat"
	"github.com/klytics/invoicechat/internal/config"
	"github.com/klytics/invoicechat/internal/dataset"
	"github.com/klytics/invoicechat/internal/watch"
)

// App is a ready-to-serve process: one agent shared by all chat sessions.
type App struct {
	Config       *config.Config
	Agent        *agent.CSVAgent
	Sessions     *chat.Manager
	CacheCreated bool

	log     *zap.Logger
	closers []func() error
}

// Prepare checks the credential and makes sure the CSV cache exists.
// The credential is checked first so a misconfigured start never touches the
// spreadsheet.
func Prepare(cfg *config.Config, log *zap.Logger) (bool, error) {
	if err := cfg.RequireCredential(); err != nil {
		return false, err
	}
	created, err := dataset.EnsureCSV(cfg.Data.Spreadsheet, cfg.Data.CSV)
	if err != nil {
		return false, fmt.Errorf("could not prepare invoice data: %w", err)
	}
	if created {
		log.Info("created CSV cache", zap.String("spreadsheet", cfg.Data.Spreadsheet), zap.String("csv", cfg.Data.CSV))
	} else {
		log.Debug("using existing CSV cache", zap.String("csv", cfg.Data.CSV))
	}
	return created, nil
}

// Bootstrap runs the startup pipeline: credential check, data preparation,
// agent construction and session storage.
func Bootstrap(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	created, err := Prepare(cfg, log)
	if err != nil {
		return nil, err
	}

	provider, err := ai.NewProvider(ai.ProviderConfig{
		Name:       cfg.Provider,
		Model:      cfg.Model,
		APIKey:     cfg.APIKeys.OpenAI,
		BaseURL:    cfg.OpenAI.BaseURL,
		OllamaHost: cfg.Ollama.Host,
	})
	if err != nil {
		return nil, err
	}

	a, err := agent.New(provider, cfg.Data.CSV, agent.Options{
		Model:              cfg.Model,
		Temperature:        cfg.Temperature,
		MaxIterations:      cfg.Agent.MaxIterations,
		Timeout:            cfg.Agent.Timeout,
		Verbose:            cfg.Agent.Verbose,
		AllowDangerousCode: cfg.Agent.AllowDangerousCode,
		Interpreter:        cfg.Agent.Interpreter,
		CodeTimeout:        cfg.Agent.CodeTimeout,
		Logger:             log,
	})
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Agent: a, CacheCreated: created, log: log}

	store, err := app.newStore(ctx)
	if err != nil {
		return nil, err
	}
	app.Sessions = chat.NewManager(a, store, cfg.Session.IdleTimeout, log)

	log.Info("assistant ready",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.Model),
		zap.String("csv", cfg.Data.CSV),
		zap.Strings("tools", a.Tools()),
		zap.String("sessions", cfg.Session.Backend))
	return app, nil
}

func (a *App) newStore(ctx context.Context) (chat.Store, error) {
	switch a.Config.Session.Backend {
	case "", "memory":
		return chat.NewMemoryStore(), nil
	case "redis":
		r := a.Config.Session.Redis
		store, err := chat.NewRedisStore(ctx, chat.RedisOptions{Addr: r.Addr, Password: r.Password, DB: r.DB}, a.Config.Session.IdleTimeout)
		if err != nil {
			return nil, fmt.Errorf("could not connect session store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q — supported backends: memory, redis", a.Config.Session.Backend)
	}
}

// Background starts session expiry and, when enabled, the spreadsheet
// watcher. Both stop when ctx is done.
func (a *App) Background(ctx context.Context) {
	go a.Sessions.Run(ctx)

	if !a.Config.Data.WatchSource {
		return
	}
	if _, err := os.Stat(a.Config.Data.Spreadsheet); err != nil {
		a.log.Warn("not watching spreadsheet", zap.String("path", a.Config.Data.Spreadsheet), zap.Error(err))
		return
	}
	w, err := watch.New(watch.Config{Spreadsheet: a.Config.Data.Spreadsheet, CSV: a.Config.Data.CSV}, a.log)
	if err != nil {
		a.log.Warn("not watching spreadsheet", zap.Error(err))
		return
	}
	go func() {
		if err := w.Start(ctx); err != nil {
			a.log.Warn("spreadsheet watcher stopped", zap.Error(err))
		}
	}()
	a.log.Info("watching spreadsheet for changes", zap.String("path", filepath.Clean(a.Config.Data.Spreadsheet)))
}

// Close releases external connections.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

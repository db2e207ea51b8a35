// Package config manages application configuration from files, .env and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MissingCredentialMessage is shown to the user when no API key can be found.
const MissingCredentialMessage = "API key not found. Please check your .env file."

// ErrMissingCredential is returned when the model-provider credential is absent or empty.
var ErrMissingCredential = errors.New(MissingCredentialMessage)

// Config holds the application configuration.
type Config struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	APIKeys     struct {
		OpenAI string `mapstructure:"openai" yaml:"openai"`
	} `mapstructure:"api_keys" yaml:"api_keys"`
	OpenAI struct {
		BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	} `mapstructure:"openai" yaml:"openai"`
	Ollama struct {
		Host string `mapstructure:"host" yaml:"host"`
	} `mapstructure:"ollama" yaml:"ollama"`
	Data    DataConfig    `mapstructure:"data" yaml:"data"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Log     struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`
}

// DataConfig locates the spreadsheet and its CSV cache.
type DataConfig struct {
	Spreadsheet string `mapstructure:"spreadsheet" yaml:"spreadsheet"`
	CSV         string `mapstructure:"csv" yaml:"csv"`
	WatchSource bool   `mapstructure:"watch_source" yaml:"watch_source"`
}

// AgentConfig configures the CSV agent.
type AgentConfig struct {
	AllowDangerousCode bool          `mapstructure:"allow_dangerous_code" yaml:"allow_dangerous_code"`
	Interpreter        string        `mapstructure:"interpreter" yaml:"interpreter"`
	CodeTimeout        time.Duration `mapstructure:"code_timeout" yaml:"code_timeout"`
	MaxIterations      int           `mapstructure:"max_iterations" yaml:"max_iterations"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Verbose            bool          `mapstructure:"verbose" yaml:"verbose"`
}

// ServerConfig configures the web chat surface.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// SessionConfig configures chat session storage.
type SessionConfig struct {
	Backend     string        `mapstructure:"backend" yaml:"backend"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	Redis       struct {
		Addr     string `mapstructure:"addr" yaml:"addr"`
		Password string `mapstructure:"password" yaml:"password"`
		DB       int    `mapstructure:"db" yaml:"db"`
	} `mapstructure:"redis" yaml:"redis"`
}

// LoadOptions points Load at non-default files.
type LoadOptions struct {
	ConfigFile string
	EnvFile    string
}

// Load reads the configuration from .env, ~/.invoicechat/config.yaml and environment variables.
// Variables already present in the environment win over the .env file.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("could not load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("INVOICECHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api_keys.openai", "OPENAI_API_KEY")
	_ = v.BindEnv("ollama.host", "OLLAMA_HOST")

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		if err := v.ReadInConfig(); err != nil {
			// Missing default config file is fine.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("could not read config %s: %w", ConfigPath(), err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	cfg.APIKeys.OpenAI = strings.TrimSpace(cfg.APIKeys.OpenAI)
	cfg.Provider = strings.ToLower(cfg.Provider)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "openai")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("temperature", 0.0)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ollama.host", "http://localhost:11434")

	v.SetDefault("data.spreadsheet", "Invoice.xlsx")
	v.SetDefault("data.csv", "Invoice.csv")
	v.SetDefault("data.watch_source", false)

	v.SetDefault("agent.allow_dangerous_code", false)
	v.SetDefault("agent.interpreter", "python3")
	v.SetDefault("agent.code_timeout", 30*time.Second)
	v.SetDefault("agent.max_iterations", 15)
	v.SetDefault("agent.timeout", 2*time.Minute)
	v.SetDefault("agent.verbose", true)

	v.SetDefault("server.addr", ":8501")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8501"})

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.idle_timeout", 30*time.Minute)
	v.SetDefault("session.redis.addr", "localhost:6379")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// RequireCredential returns ErrMissingCredential when the configured provider
// needs an API key and none is set.
func (c *Config) RequireCredential() error {
	if c.Provider == "ollama" {
		return nil
	}
	if c.APIKeys.OpenAI == "" {
		return ErrMissingCredential
	}
	return nil
}

// ConfigPath returns the path to the default config file.
func ConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".invoicechat"
	}
	return filepath.Join(home, ".invoicechat")
}

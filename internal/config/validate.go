package config

import (
	"fmt"
	"os"
	"os/exec"

	"gopkg.in/yaml.v3"
)

// Issue represents a validation finding.
type Issue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Validate checks config values and the files they point at.
func (c *Config) Validate() []Issue {
	var issues []Issue

	switch c.Provider {
	case "openai":
		if c.APIKeys.OpenAI == "" {
			issues = append(issues, Issue{
				Key:      "api_keys.openai",
				Severity: "error",
				Message:  "provider is \"openai\" but OPENAI_API_KEY is not set",
				Fix:      "add OPENAI_API_KEY=sk-... to .env",
			})
		} else {
			issues = append(issues, Issue{Key: "api_keys.openai", Severity: "info", Message: "OpenAI API key configured"})
		}
	case "ollama":
		issues = append(issues, Issue{Key: "provider", Severity: "info", Message: "Ollama configured at " + c.Ollama.Host})
	default:
		issues = append(issues, Issue{
			Key:      "provider",
			Severity: "error",
			Message:  fmt.Sprintf("unknown provider %q", c.Provider),
			Fix:      "set provider to openai or ollama",
		})
	}

	if _, err := os.Stat(c.Data.CSV); err == nil {
		issues = append(issues, Issue{Key: "data.csv", Severity: "info", Message: "CSV cache present at " + c.Data.CSV})
	} else if _, err := os.Stat(c.Data.Spreadsheet); err == nil {
		issues = append(issues, Issue{Key: "data.spreadsheet", Severity: "info", Message: "spreadsheet found; CSV cache will be created on first start"})
	} else {
		issues = append(issues, Issue{
			Key:      "data.spreadsheet",
			Severity: "error",
			Message:  fmt.Sprintf("neither %s nor %s exists", c.Data.CSV, c.Data.Spreadsheet),
			Fix:      "place the invoice workbook at " + c.Data.Spreadsheet,
		})
	}

	if c.Agent.AllowDangerousCode {
		if _, err := exec.LookPath(c.Agent.Interpreter); err != nil {
			issues = append(issues, Issue{
				Key:      "agent.interpreter",
				Severity: "error",
				Message:  fmt.Sprintf("code execution is enabled but %q is not in PATH", c.Agent.Interpreter),
			})
		}
		issues = append(issues, Issue{
			Key:      "agent.allow_dangerous_code",
			Severity: "warning",
			Message:  "the agent may execute arbitrary code on this host",
		})
	}

	if c.Session.Backend != "memory" && c.Session.Backend != "redis" {
		issues = append(issues, Issue{
			Key:      "session.backend",
			Severity: "error",
			Message:  fmt.Sprintf("unknown session backend %q", c.Session.Backend),
			Fix:      "set session.backend to memory or redis",
		})
	}

	return issues
}

// Redacted returns a copy of the config with secrets masked.
func (c *Config) Redacted() Config {
	out := *c
	out.APIKeys.OpenAI = mask(c.APIKeys.OpenAI)
	out.Session.Redis.Password = mask(c.Session.Redis.Password)
	return out
}

// YAML renders the redacted configuration.
func (c *Config) YAML() (string, error) {
	r := c.Redacted()
	data, err := yaml.Marshal(&r)
	if err != nil {
		return "", fmt.Errorf("could not encode config: %w", err)
	}
	return string(data), nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return s[:min(6, len(s))] + "****"
}

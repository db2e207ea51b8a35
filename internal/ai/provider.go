// Package ai provides a unified interface to OpenAI-compatible chat-completion providers.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Roles used in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

var (
	// ErrUnauthorized is returned when the provider rejects the credential.
	ErrUnauthorized = errors.New("model provider rejected the API key")
	// ErrRateLimited is returned on HTTP 429.
	ErrRateLimited = errors.New("model provider rate limit reached")
)

// Message represents a single message in a conversation with an AI model.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes a function the model may call. Parameters is a JSON Schema object.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// InferOptions configures a single inference call.
type InferOptions struct {
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Tools       []Tool   `json:"tools,omitempty"`
}

// InferResult holds the response from an inference call.
type InferResult struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"toolCalls,omitempty"`
	FinishReason string     `json:"finishReason,omitempty"`
	Model        string     `json:"model"`
	InputTokens  int        `json:"inputTokens,omitempty"`
	OutputTokens int        `json:"outputTokens,omitempty"`
}

// Provider defines the interface that all AI backends must implement.
type Provider interface {
	// Infer sends the conversation and returns the complete response.
	Infer(ctx context.Context, system string, messages []Message, opts InferOptions) (*InferResult, error)

	// Name returns the provider identifier.
	Name() string
}

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Name       string
	Model      string
	APIKey     string
	BaseURL    string
	OllamaHost string
}

// NewProvider creates a provider instance based on the provider name.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(cfg.Name) {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "ollama":
		host := strings.TrimRight(cfg.OllamaHost, "/")
		if host == "" {
			host = "http://localhost:11434"
		}
		p := NewOpenAIProvider("", cfg.Model, host+"/v1")
		p.name = "ollama"
		return p, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q — supported providers: openai, ollama", cfg.Name)
	}
}

// Float64 returns a pointer to v, for InferOptions.Temperature.
func Float64(v float64) *float64 {
	return &v
}

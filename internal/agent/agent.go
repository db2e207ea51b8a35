// Package agent answers natural-language questions over the invoice CSV cache
// by letting a chat model call table tools in a loop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/klytics/invoicechat/internal/ai"
	"github.com/klytics/invoicechat/internal/dataset"
	"github.com/klytics/invoicechat/internal/metrics"
)

// DangerousCodeWarning is shown wherever code execution is enabled.
const DangerousCodeWarning = "WARNING: allow_dangerous_code is enabled. The agent can run arbitrary code on this host with your user's permissions."

const previewRows = 5

// ErrMaxIterations is returned when the model keeps calling tools without answering.
var ErrMaxIterations = errors.New("agent stopped after reaching the iteration limit without an answer")

// Agent turns one input text into one textual answer.
type Agent interface {
	Invoke(ctx context.Context, input string) (string, error)
}

// Options configures a CSVAgent.
type Options struct {
	Model              string
	Temperature        float64
	MaxIterations      int
	Timeout            time.Duration
	Verbose            bool
	AllowDangerousCode bool
	Interpreter        string
	CodeTimeout        time.Duration
	Logger             *zap.Logger
}

// CSVAgent is an OpenAI-tools agent bound to one CSV file.
type CSVAgent struct {
	provider ai.Provider
	csvPath  string
	table    *dataset.Table
	tools    map[string]Tool
	defs     []ai.Tool
	system   string
	opts     Options
	log      *zap.Logger
}

// New loads csvPath and binds it to provider. The table is read once; later
// changes to the file are not seen by this agent.
func New(provider ai.Provider, csvPath string, opts Options) (*CSVAgent, error) {
	table, err := dataset.Load(csvPath)
	if err != nil {
		return nil, fmt.Errorf("could not load agent data: %w", err)
	}

	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 15
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	a := &CSVAgent{
		provider: provider,
		csvPath:  csvPath,
		table:    table,
		tools:    make(map[string]Tool),
		opts:     opts,
		log:      opts.Logger.Named("agent"),
	}

	tools := []Tool{
		newDescribeTool(filepath.Base(csvPath), table),
		newAggregateTool(table),
		newListRowsTool(table),
	}
	if opts.AllowDangerousCode {
		a.log.Warn(DangerousCodeWarning, zap.String("interpreter", opts.Interpreter))
		tools = append(tools, newRunCodeTool(csvPath, opts.Interpreter, opts.CodeTimeout))
	}
	for _, t := range tools {
		def := t.Definition()
		a.tools[def.Name] = t
		a.defs = append(a.defs, def)
	}
	a.system = systemPrompt(filepath.Base(csvPath), table, opts.AllowDangerousCode)

	return a, nil
}

// Tools returns the names of the tools offered to the model.
func (a *CSVAgent) Tools() []string {
	names := make([]string, len(a.defs))
	for i, d := range a.defs {
		names[i] = d.Name
	}
	return names
}

// Invoke runs the tool loop until the model answers with text.
func (a *CSVAgent) Invoke(ctx context.Context, input string) (string, error) {
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	messages := []ai.Message{{Role: ai.RoleUser, Content: input}}
	inferOpts := ai.InferOptions{
		Model:       a.opts.Model,
		Temperature: ai.Float64(a.opts.Temperature),
		Tools:       a.defs,
	}

	for step := 1; step <= a.opts.MaxIterations; step++ {
		res, err := a.provider.Infer(ctx, a.system, messages, inferOpts)
		if err != nil {
			return "", fmt.Errorf("agent inference failed: %w", err)
		}

		if len(res.ToolCalls) == 0 {
			if a.opts.Verbose {
				a.log.Info("final answer", zap.Int("step", step), zap.Int("input_tokens", res.InputTokens), zap.Int("output_tokens", res.OutputTokens))
			}
			return res.Content, nil
		}

		messages = append(messages, ai.Message{Role: ai.RoleAssistant, Content: res.Content, ToolCalls: res.ToolCalls})
		for _, call := range res.ToolCalls {
			messages = append(messages, ai.Message{
				Role:       ai.RoleTool,
				ToolCallID: call.ID,
				Content:    a.runTool(ctx, step, call),
			})
		}
	}

	return "", ErrMaxIterations
}

// runTool executes one call. Failures become the tool result so the model can recover.
func (a *CSVAgent) runTool(ctx context.Context, step int, call ai.ToolCall) string {
	if a.opts.Verbose {
		a.log.Info("tool call", zap.Int("step", step), zap.String("tool", call.Name), zap.String("args", call.Arguments))
	}

	tool, ok := a.tools[call.Name]
	if !ok {
		metrics.ToolCallsTotal.WithLabelValues("unknown", "error").Inc()
		return fmt.Sprintf("error: unknown tool %q; available tools: %s", call.Name, strings.Join(a.Tools(), ", "))
	}

	args := strings.TrimSpace(call.Arguments)
	if args == "" {
		args = "{}"
	}

	out, err := runValidated(ctx, tool, args)
	if err != nil {
		metrics.ToolCallsTotal.WithLabelValues(call.Name, "error").Inc()
		a.log.Debug("tool failed", zap.String("tool", call.Name), zap.Error(err))
		return "error: " + err.Error()
	}

	metrics.ToolCallsTotal.WithLabelValues(call.Name, "ok").Inc()
	if a.opts.Verbose {
		a.log.Info("tool result", zap.String("tool", call.Name), zap.String("output", truncate(out, 500)))
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// Package shell provides the interactive terminal chat.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/klytics/invoicechat/internal/chat"
)

// Prompt is shown before every question.
const Prompt = "You: "

// Conversation is the chat session the REPL talks to.
type Conversation interface {
	Submit(ctx context.Context, question string) ([]chat.Entry, error)
	Transcript(ctx context.Context) ([]chat.Entry, error)
	End(ctx context.Context) error
}

// REPL reads questions from the terminal and prints the assistant's answers.
type REPL struct {
	conv        Conversation
	out         io.Writer
	HistoryFile string
	StartTime   time.Time
	turns       int
}

var (
	userLabel      = color.New(color.FgCyan, color.Bold).SprintFunc()
	assistantLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	errorText      = color.New(color.FgRed).SprintFunc()
)

// New creates a REPL that writes to out.
func New(conv Conversation, out io.Writer) *REPL {
	home, _ := os.UserHomeDir()
	return &REPL{
		conv:        conv,
		out:         out,
		HistoryFile: filepath.Join(home, ".invoicechat", "chat_history"),
		StartTime:   time.Now(),
	}
}

// Run starts the loop. Blocks until /exit, Ctrl+D or ctx is done; the
// session is ended on the way out.
func (r *REPL) Run(ctx context.Context) error {
	os.MkdirAll(filepath.Dir(r.HistoryFile), 0755)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          Prompt,
		HistoryFile:     r.HistoryFile,
		AutoComplete:    readline.NewPrefixCompleter(readline.PcItem("/history"), readline.PcItem("/help"), readline.PcItem("/exit")),
		InterruptPrompt: "^C",
		EOFPrompt:       "/exit",
		Stdout:          r.out,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(r.out, color.New(color.Bold).Sprint("Digital Assistant"))
	fmt.Fprintln(r.out, "Ask me anything about your invoices! Type /help for commands, /exit to quit.")
	fmt.Fprintln(r.out)

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if err != nil { // io.EOF or interrupt
			break
		}
		quit, err := r.Eval(ctx, line)
		if err != nil {
			fmt.Fprintln(r.out, errorText("Error: "+err.Error()))
		}
		if quit {
			return nil
		}
	}

	r.finish(context.Background())
	return nil
}

// Eval handles one input line. It reports whether the REPL should stop.
func (r *REPL) Eval(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false, nil
	case line == "/exit" || line == "/quit":
		r.finish(ctx)
		return true, nil
	case line == "/help":
		r.printHelp()
		return false, nil
	case line == "/history":
		return false, r.printHistory(ctx)
	case strings.HasPrefix(line, "/"):
		return false, fmt.Errorf("unknown command %q — type /help", line)
	}

	entries, err := r.conv.Submit(ctx, line)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			return true, errors.New("session expired; start a new chat")
		}
		return false, err
	}
	r.turns++
	for _, e := range entries {
		if e.Role == chat.RoleAssistant {
			fmt.Fprintf(r.out, "%s %s\n\n", assistantLabel("Assistant:"), e.Content)
		}
	}
	return false, nil
}

func (r *REPL) printHistory(ctx context.Context) error {
	entries, err := r.conv.Transcript(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "No messages yet.")
		return nil
	}
	for _, e := range entries {
		label := userLabel("You:")
		if e.Role == chat.RoleAssistant {
			label = assistantLabel("Assistant:")
		}
		fmt.Fprintf(r.out, "%s %s\n", label, e.Content)
	}
	return nil
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, "Type a question about the invoices and press Enter.")
	fmt.Fprintln(r.out, "  /history  show this conversation")
	fmt.Fprintln(r.out, "  /help     show this help")
	fmt.Fprintln(r.out, "  /exit     end the session")
}

func (r *REPL) finish(ctx context.Context) {
	if err := r.conv.End(ctx); err != nil {
		fmt.Fprintln(r.out, errorText("Error: "+err.Error()))
	}
	fmt.Fprintf(r.out, "Session ended. %d question(s) answered in %s.\n", r.turns, formatDuration(time.Since(r.StartTime)))
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const maxCodeOutput = 8 << 10

// runCodeTool executes model-written code on the host. It is only registered
// when code execution has been explicitly allowed.
type runCodeTool struct {
	baseTool
	csvPath     string
	interpreter string
	timeout     time.Duration
}

func newRunCodeTool(csvPath, interpreter string, timeout time.Duration) *runCodeTool {
	if interpreter == "" {
		interpreter = "python3"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &runCodeTool{
		baseTool: newBaseTool("run_code",
			fmt.Sprintf("Run a %s program and return its combined stdout and stderr. The CSV path is in the CSV_PATH environment variable.", interpreter),
			`{
  "type": "object",
  "properties": {"code": {"type": "string", "minLength": 1}},
  "required": ["code"],
  "additionalProperties": false
}`),
		csvPath:     csvPath,
		interpreter: interpreter,
		timeout:     timeout,
	}
}

func (t *runCodeTool) Run(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(t.csvPath)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.interpreter, "-c", args.Code)
	cmd.Dir = filepath.Dir(abs)
	cmd.Env = append(os.Environ(), "CSV_PATH="+abs)
	// Children of the interpreter may keep the output pipe open after it is killed.
	cmd.WaitDelay = time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	output := out.String()
	if len(output) > maxCodeOutput {
		output = output[:maxCodeOutput] + "\n[output truncated]"
	}

	if ctx.Err() == context.DeadlineExceeded {
		return output + fmt.Sprintf("\n[killed after %s]", t.timeout), nil
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return output + fmt.Sprintf("\n[exit status %d]", exitErr.ExitCode()), nil
	}
	if runErr != nil {
		return "", fmt.Errorf("could not run %s: %w", t.interpreter, runErr)
	}
	return output, nil
}

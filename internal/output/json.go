// Package output writes the machine-readable result envelope used by --json.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klytics/invoicechat/cmd/version"
)

// Result is the JSON envelope for every --json command.
type Result struct {
	OK      bool        `json:"ok"`
	Command string      `json:"command"`
	Version string      `json:"version"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// WriteJSON writes a success envelope around data.
func WriteJSON(w io.Writer, cmd string, data interface{}) error {
	return encode(w, Result{OK: true, Command: cmd, Version: version.Version, Data: data})
}

// WriteJSONError writes a failure envelope for err.
func WriteJSONError(w io.Writer, cmd string, err error) error {
	if encErr := encode(w, Result{Command: cmd, Version: version.Version, Error: err.Error()}); encErr != nil {
		return fmt.Errorf("could not encode JSON error: %w", encErr)
	}
	return nil
}

func encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

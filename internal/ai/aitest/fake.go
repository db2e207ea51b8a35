// Package aitest provides a fake OpenAI-compatible chat completions server for tests.
package aitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Request is the decoded body of one chat completions call.
type Request struct {
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	Messages    []struct {
		Role       string `json:"role"`
		Content    string `json:"content"`
		ToolCallID string `json:"tool_call_id"`
		ToolCalls  []struct {
			ID       string `json:"id"`
			Function struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"messages"`
	Tools []struct {
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	} `json:"tools"`
	Authorization string `json:"-"`
}

// LastUserContent returns the content of the last user message.
func (r Request) LastUserContent() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// ToolNames lists the tools offered in the request.
func (r Request) ToolNames() []string {
	names := make([]string, len(r.Tools))
	for i, t := range r.Tools {
		names[i] = t.Function.Name
	}
	return names
}

// Reply is one scripted response: text, tool calls, or an HTTP error.
type Reply struct {
	Content   string
	ToolCalls []Call
	Status    int
}

// Call is a scripted tool call.
type Call struct {
	ID        string
	Name      string
	Arguments string
}

// Text scripts a plain answer.
func Text(s string) Reply { return Reply{Content: s} }

// Tool scripts a single tool call.
func Tool(id, name, args string) Reply {
	return Reply{ToolCalls: []Call{{ID: id, Name: name, Arguments: args}}}
}

// Server is a scripted fake. Replies are served in order; once exhausted the
// Fallback function answers, and without one the server returns "ok".
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	replies  []Reply
	requests []Request
	Fallback func(Request) Reply
}

// NewServer starts a fake that serves replies in order and closes with the test.
func NewServer(t testing.TB, replies ...Reply) *Server {
	t.Helper()
	s := &Server{replies: replies}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the base URL to configure as the provider's base URL.
func (s *Server) BaseURL() string {
	return s.Server.URL + "/v1"
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	body, _ := io.ReadAll(r.Body)
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Authorization = r.Header.Get("Authorization")

	s.mu.Lock()
	s.requests = append(s.requests, req)
	var reply Reply
	switch {
	case len(s.replies) > 0:
		reply = s.replies[0]
		s.replies = s.replies[1:]
	case s.Fallback != nil:
		reply = s.Fallback(req)
	default:
		reply = Text("ok")
	}
	n := len(s.requests)
	s.mu.Unlock()

	if reply.Status != 0 && reply.Status != http.StatusOK {
		w.WriteHeader(reply.Status)
		fmt.Fprintf(w, `{"error":{"message":"scripted status %d"}}`, reply.Status)
		return
	}

	msg := map[string]interface{}{"role": "assistant", "content": reply.Content}
	finish := "stop"
	if len(reply.ToolCalls) > 0 {
		calls := make([]map[string]interface{}, len(reply.ToolCalls))
		for i, c := range reply.ToolCalls {
			calls[i] = map[string]interface{}{
				"id":       c.ID,
				"type":     "function",
				"function": map[string]string{"name": c.Name, "arguments": c.Arguments},
			}
		}
		msg["tool_calls"] = calls
		msg["content"] = nil
		finish = "tool_calls"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      fmt.Sprintf("chatcmpl-%d", n),
		"model":   req.Model,
		"choices": []map[string]interface{}{{"index": 0, "message": msg, "finish_reason": finish}},
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5},
	})
}

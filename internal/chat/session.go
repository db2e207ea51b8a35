// Package chat owns chat sessions: the turn handler, transcript storage and
// session lifetime.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/klytics/invoicechat/internal/metrics"
)

// Transcript roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrEmptyQuestion is returned for blank input.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrTurnInProgress is returned when a session already has a turn running.
	ErrTurnInProgress = errors.New("a question is already being answered in this session")
)

// Entry is one transcript line.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is a handle on one live chat session.
type Session struct {
	ID string
	m  *Manager
}

// Submit runs one turn: it sends the question, wrapped in the data dictionary
// preamble, to the agent and appends the question and answer to the
// transcript. Nothing is appended when the agent fails.
func (s *Session) Submit(ctx context.Context, question string) ([]Entry, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if !s.m.acquire(s.ID) {
		return nil, ErrTurnInProgress
	}
	defer s.m.release(s.ID)

	ok, err := s.m.store.Exists(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}

	start := time.Now()
	answer, err := s.m.agent.Invoke(ctx, BuildInput(question))
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.TurnsTotal.WithLabelValues("error").Inc()
		metrics.TurnDuration.WithLabelValues("error").Observe(elapsed)
		s.m.log.Warn("turn failed", zap.String("session", s.ID), zap.Error(err))
		return nil, fmt.Errorf("agent invocation failed: %w", err)
	}
	metrics.TurnsTotal.WithLabelValues("ok").Inc()
	metrics.TurnDuration.WithLabelValues("ok").Observe(elapsed)

	entries := []Entry{
		{Role: RoleUser, Content: question},
		{Role: RoleAssistant, Content: answer},
	}
	if err := s.m.store.Append(ctx, s.ID, entries...); err != nil {
		return nil, fmt.Errorf("could not record turn: %w", err)
	}
	return entries, nil
}

// Transcript returns the session's entries in order.
func (s *Session) Transcript(ctx context.Context) ([]Entry, error) {
	return s.m.store.Transcript(ctx, s.ID)
}

// End tears the session down and discards its transcript.
func (s *Session) End(ctx context.Context) error {
	return s.m.End(ctx, s.ID)
}

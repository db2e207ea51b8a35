package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/klytics/invoicechat/internal/chat"
)

// SessionCookie carries the chat session id.
const SessionCookie = "invoicechat_session"

// Handler serves the session API.
type Handler struct {
	sessions *chat.Manager
	log      *zap.Logger
}

// MessageRequest is the body of POST /api/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// TranscriptResponse lists a session's entries in order.
type TranscriptResponse struct {
	Session  string       `json:"session"`
	Messages []chat.Entry `json:"messages"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// session returns the caller's session, starting one on first interaction.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*chat.Session, error) {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	s, created, err := h.sessions.Open(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    s.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s, nil
}

// GetTranscript handles GET /api/transcript.
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not open session", err)
		return
	}
	entries, err := s.Transcript(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not read transcript", err)
		return
	}
	if entries == nil {
		entries = []chat.Entry{}
	}
	writeJSON(w, http.StatusOK, TranscriptResponse{Session: s.ID, Messages: entries})
}

// PostMessage handles POST /api/messages: one turn of the conversation.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	s, err := h.session(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not open session", err)
		return
	}

	entries, err := s.Submit(r.Context(), req.Text)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, TranscriptResponse{Session: s.ID, Messages: entries})
	case errors.Is(err, chat.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, "question is empty", nil)
	case errors.Is(err, chat.ErrTurnInProgress):
		writeError(w, http.StatusConflict, "a question is already being answered", nil)
	case errors.Is(err, chat.ErrSessionNotFound):
		writeError(w, http.StatusGone, "session expired", nil)
	default:
		h.log.Error("turn failed", zap.String("session", s.ID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "the assistant could not answer", err)
	}
}

// EndSession handles DELETE /api/session.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if err := h.sessions.End(r.Context(), c.Value); err != nil {
			writeError(w, http.StatusInternalServerError, "could not end session", err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

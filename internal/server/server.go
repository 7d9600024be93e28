// Package server exposes an executor over the agent JSON-RPC surface:
// blocking sends, SSE streaming, task queries, cancellation, and the
// well-known agent card, plus a small operational API.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/executor"
	"github.com/ChristChad-mv/careflow-sub000/internal/session"
)

type Server struct {
	Exec     executor.Executor
	Card     a2a.AgentCard
	Sessions *session.Registry
	Logger   *slog.Logger

	StartedAt time.Time
	registry  taskRegistry
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRPC)
	mux.HandleFunc(a2a.AgentCardPath, s.handleAgentCard)
	mux.HandleFunc(a2a.AgentCardAltPath, s.handleAgentCard)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionItem)
	mux.HandleFunc("/api/sessions/ws", s.handleSessionsWS)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"agent":  s.Card.Name,
		"uptime": time.Since(s.StartedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.Card)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	if s.Sessions == nil {
		writeJSON(w, http.StatusOK, []session.Session{})
		return
	}
	active := s.Sessions.Active()
	if active == nil {
		active = []session.Session{}
	}
	writeJSON(w, http.StatusOK, active)
}

func (s *Server) handleSessionItem(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/sessions/ws" {
		s.handleSessionsWS(w, r)
		return
	}
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	callID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/")
	if s.Sessions == nil || callID == "" {
		writeError(w, http.StatusNotFound, errNotFound("session"))
		return
	}
	snap, ok := s.Sessions.Snapshot(callID)
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound("session"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func decodeJSON(body io.Reader, dest any) error {
	dec := json.NewDecoder(body)
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}

type notFoundError struct {
	msg string
}

func (e notFoundError) Error() string { return e.msg }

func errNotFound(target string) error {
	return notFoundError{msg: target + " not found"}
}

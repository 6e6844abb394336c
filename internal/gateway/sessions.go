package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tventura/watrack/internal/supervisor"
)

// handleListSessions returns every persisted session with its runtime state.
func (s *Server) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := s.sup.Sessions(r.Context())
		if err != nil {
			s.logger.Error("session list failed", "error", err)
			s.respondError(w, http.StatusInternalServerError, "failed to list sessions")
			return
		}
		s.respond(w, http.StatusOK, sessions, nil)
	}
}

// handleProvisionSession creates a new session for a named agent and starts
// its client. The caller pairs it via the QR endpoint afterwards.
func (s *Server) handleProvisionSession() http.HandlerFunc {
	type request struct {
		AgentName string `json:"agent_name"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.AgentName == "" {
			s.respondError(w, http.StatusBadRequest, "agent_name is required")
			return
		}

		info, err := s.sup.Provision(r.Context(), req.AgentName)
		if err != nil {
			s.logger.Error("session provisioning failed", "error", err)
			s.respondError(w, http.StatusInternalServerError, "failed to provision session")
			return
		}
		s.respond(w, http.StatusCreated, info, nil)
	}
}

// handleSessionQR returns the latest pairing code for a session. 404 when
// the session does not exist or no code is pending.
func (s *Server) handleSessionQR() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		qr, err := s.sup.QR(name)
		if errors.Is(err, supervisor.ErrSessionNotFound) {
			s.respondError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			s.logger.Error("qr lookup failed", "session", name, "error", err)
			s.respondError(w, http.StatusInternalServerError, "failed to read pairing code")
			return
		}
		if qr == nil {
			s.respondError(w, http.StatusNotFound, "no pairing code pending")
			return
		}
		s.respond(w, http.StatusOK, qr, nil)
	}
}

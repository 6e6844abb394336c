package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tventura/watrack/internal/supervisor"
)

// handleSend delivers a text message through a ready session.
func (s *Server) handleSend() http.HandlerFunc {
	type request struct {
		Session  string `json:"session"`
		To       string `json:"to"`
		Body     string `json:"body"`
		QuotedID string `json:"quoted_id"`
	}
	type response struct {
		MessageID string `json:"message_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Session == "" || req.To == "" || req.Body == "" {
			s.respondError(w, http.StatusBadRequest, "session, to and body are required")
			return
		}

		id, err := s.sup.Send(r.Context(), req.Session, req.To, req.Body, req.QuotedID)
		switch {
		case errors.Is(err, supervisor.ErrSessionNotFound):
			s.respondError(w, http.StatusNotFound, "session not found")
			return
		case errors.Is(err, supervisor.ErrSessionNotReady):
			s.respondError(w, http.StatusConflict, "session not ready")
			return
		case err != nil:
			s.logger.Error("send failed", "session", req.Session, "error", err)
			s.respondError(w, http.StatusBadGateway, "send failed")
			return
		}
		s.respond(w, http.StatusOK, response{MessageID: id}, nil)
	}
}

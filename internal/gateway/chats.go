package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tventura/watrack/internal/store"
)

// handleListChats serves chat summaries, most recently active first:
// ?session=&include_inactive=.
func (s *Server) handleListChats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		includeInactive := false
		if v := q.Get("include_inactive"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, "invalid include_inactive value")
				return
			}
			includeInactive = b
		}

		chats, err := s.store.ListChats(r.Context(), q.Get("session"), includeInactive)
		if err != nil {
			s.logger.Error("chat list failed", "error", err)
			s.respondError(w, http.StatusInternalServerError, "failed to list chats")
			return
		}
		s.respond(w, http.StatusOK, chats, nil)
	}
}

// handleDeactivateChat hides a chat from listings without deleting its
// history. A new message in the chat reactivates it.
func (s *Server) handleDeactivateChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := chi.URLParam(r, "chatID")
		session := r.URL.Query().Get("session")
		if session == "" {
			s.respondError(w, http.StatusBadRequest, "session query parameter is required")
			return
		}

		err := s.store.SetChatActive(r.Context(), chatID, session, false)
		if errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "chat not found")
			return
		}
		if err != nil {
			s.logger.Error("chat deactivation failed", "chat", chatID, "error", err)
			s.respondError(w, http.StatusInternalServerError, "failed to deactivate chat")
			return
		}
		s.respond(w, http.StatusOK, map[string]string{"chat_id": chatID, "state": "inactive"}, nil)
	}
}

package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tventura/watrack/internal/media"
	"github.com/tventura/watrack/internal/store"
	"github.com/tventura/watrack/pkg/waevent"
)

// messageView decorates a ledger row with media retrieval URLs.
type messageView struct {
	*store.Message
	DownloadURL string `json:"download_url,omitempty"`
	ViewURL     string `json:"view_url,omitempty"`
}

func newMessageView(m *store.Message) messageView {
	v := messageView{Message: m}
	if m.MediaFile != "" {
		v.DownloadURL = fmt.Sprintf("/api/messages/%s/download", m.MessageID)
		v.ViewURL = fmt.Sprintf("/api/messages/%s/view", m.MessageID)
	}
	return v
}

// handleListMessages serves the ledger with filters and pagination:
// ?session=&chat=&kind=&has_media=&is_group=&limit=&offset=.
func (s *Server) handleListMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.MessageFilter{
			SessionName: q.Get("session"),
			ChatID:      q.Get("chat"),
			Kind:        waevent.Kind(q.Get("kind")),
		}
		if v := q.Get("has_media"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, "invalid has_media value")
				return
			}
			filter.HasMedia = &b
		}
		if v := q.Get("is_group"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, "invalid is_group value")
				return
			}
			filter.IsGroup = &b
		}
		filter.Limit, _ = strconv.Atoi(q.Get("limit"))
		filter.Offset, _ = strconv.Atoi(q.Get("offset"))
		if filter.Limit <= 0 {
			filter.Limit = 50
		}

		rows, total, err := s.store.ListMessages(r.Context(), filter)
		if err != nil {
			s.logger.Error("message list failed", "error", err)
			s.respondError(w, http.StatusInternalServerError, "failed to list messages")
			return
		}

		views := make([]messageView, 0, len(rows))
		for _, m := range rows {
			views = append(views, newMessageView(m))
		}
		s.respond(w, http.StatusOK, views, &pagination{Total: total, Limit: filter.Limit, Offset: filter.Offset})
	}
}

// handleGetMessage serves a single ledger row.
func (s *Server) handleGetMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		m, err := s.store.MessageByID(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "message not found")
			return
		}
		if err != nil {
			s.logger.Error("message load failed", "message_id", id, "error", err)
			s.respondError(w, http.StatusInternalServerError, "failed to load message")
			return
		}
		s.respond(w, http.StatusOK, newMessageView(m), nil)
	}
}

// handleMediaDownload serves a message's attachment as a file download.
func (s *Server) handleMediaDownload() http.HandlerFunc {
	return s.serveMedia(true)
}

// handleMediaView serves a message's attachment inline for browser preview.
func (s *Server) handleMediaView() http.HandlerFunc {
	return s.serveMedia(false)
}

func (s *Server) serveMedia(asAttachment bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		m, err := s.store.MessageByID(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "message not found")
			return
		}
		if err != nil {
			s.logger.Error("message load failed", "message_id", id, "error", err)
			s.respondError(w, http.StatusInternalServerError, "failed to load message")
			return
		}
		if m.MediaFile == "" {
			s.respondError(w, http.StatusNotFound, "message has no stored media")
			return
		}

		data, err := s.media.Resolve(m.MediaFile)
		if errors.Is(err, media.ErrNotFound) || errors.Is(err, media.ErrInvalidReference) {
			s.respondError(w, http.StatusNotFound, "media file not found")
			return
		}
		if err != nil {
			s.logger.Error("media read failed", "message_id", id, "error", err)
			s.respondError(w, http.StatusInternalServerError, "failed to read media")
			return
		}

		mimeType := m.MediaMime
		if mimeType == "" {
			mimeType = media.MimeTypeFor(m.MediaFile)
		}
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if asAttachment {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", m.MediaFile))
		} else {
			w.Header().Set("Content-Disposition", "inline")
		}
		if _, err := w.Write(data); err != nil {
			s.logger.Debug("media write aborted", "message_id", id, "error", err)
		}
	}
}

package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tventura/watrack/internal/notify"
)

// writeTimeout bounds a single event write to a WebSocket subscriber.
const writeTimeout = 5 * time.Second

// handleEvents upgrades to a WebSocket and streams fan-out events. Scope
// with ?session= or ?chat=; with neither, the stream carries everything.
func (s *Server) handleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			s.logger.Debug("websocket accept failed", "error", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "stream aborted")

		var topics []string
		q := r.URL.Query()
		if v := q.Get("session"); v != "" {
			topics = append(topics, notify.SessionTopic(v))
		}
		if v := q.Get("chat"); v != "" {
			topics = append(topics, notify.ChatTopic(v))
		}

		sub := s.hub.Subscribe(topics...)
		defer sub.Cancel()

		// CloseRead pumps incoming frames and cancels the context when the
		// client goes away.
		ctx := conn.CloseRead(r.Context())

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case ev, ok := <-sub.C:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "server shutting down")
					return
				}
				writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
				err := wsjson.Write(writeCtx, conn, ev)
				cancel()
				if err != nil {
					s.logger.Debug("event stream write failed", "error", err)
					return
				}
			}
		}
	}
}

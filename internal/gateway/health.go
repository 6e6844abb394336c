package gateway

import (
	"net/http"
	"os"
	"time"

	"github.com/tventura/watrack/internal/supervisor"
)

// handleHealth reports liveness, database reachability, media root state,
// and per-session status. Unauthenticated so probes can reach it.
func (s *Server) handleHealth() http.HandlerFunc {
	type health struct {
		Status   string                   `json:"status"`
		Uptime   string                   `json:"uptime"`
		Database string                   `json:"database"`
		Media    string                   `json:"media"`
		Sessions []supervisor.SessionInfo `json:"sessions"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		h := health{
			Status:   "ok",
			Uptime:   time.Since(s.startedAt).Round(time.Second).String(),
			Database: "ok",
			Media:    "ok",
		}
		status := http.StatusOK

		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn("health: database unreachable", "error", err)
			h.Status = "degraded"
			h.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
		if _, err := os.Stat(s.media.Root()); err != nil {
			s.logger.Warn("health: media root missing", "error", err)
			h.Status = "degraded"
			h.Media = "missing"
			status = http.StatusServiceUnavailable
		}
		if sessions, err := s.sup.Sessions(r.Context()); err == nil {
			h.Sessions = sessions
		}

		s.respond(w, status, h, nil)
	}
}

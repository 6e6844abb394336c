// Package gateway is the HTTP surface of the tracker: session management,
// message and chat queries, media retrieval, outbound sends, the event
// WebSocket, and Prometheus metrics.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tventura/watrack/internal/config"
	"github.com/tventura/watrack/internal/media"
	"github.com/tventura/watrack/internal/metrics"
	"github.com/tventura/watrack/internal/notify"
	"github.com/tventura/watrack/internal/store"
	"github.com/tventura/watrack/internal/supervisor"
)

// Server is the HTTP gateway.
type Server struct {
	cfg       config.GatewayConfig
	logger    *slog.Logger
	sup       *supervisor.Supervisor
	store     *store.Store
	media     *media.Store
	hub       *notify.Hub
	metrics   *metrics.Metrics
	server    *http.Server
	startedAt time.Time
}

// New creates a gateway Server. metrics may be nil, in which case the
// /metrics endpoint is not mounted.
func New(cfg config.GatewayConfig, sup *supervisor.Supervisor, st *store.Store, ms *media.Store, hub *notify.Hub, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		logger:  logger.With("component", "gateway"),
		sup:     sup,
		store:   st,
		media:   ms,
		hub:     hub,
		metrics: m,
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	s.startedAt = time.Now()

	s.server = &http.Server{
		Addr:         s.cfg.Bind,
		Handler:      s.router(),
		ReadTimeout:  s.cfg.GatewayReadTimeout(),
		WriteTimeout: s.cfg.GatewayWriteTimeout(),
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", s.cfg.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", s.cfg.Bind, err)
	}

	go func() {
		s.logger.Info("gateway listening", "addr", s.cfg.Bind)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts the server down within the configured timeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayShutdownTimeout())
	defer cancel()

	s.logger.Info("gateway shutting down")
	return s.server.Shutdown(shutdownCtx)
}

// router constructs the chi mux with all routes wired.
func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	// Health stays public so probes can reach it.
	r.Get("/health", s.handleHealth())

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if s.cfg.Auth.IsConfigured() {
			r.Use(authMiddleware(s.cfg.Auth))
		}

		r.Get("/ws/events", s.handleEvents())

		r.Route("/api", func(r chi.Router) {
			r.Get("/sessions", s.handleListSessions())
			r.Post("/sessions", s.handleProvisionSession())
			r.Get("/sessions/{name}/qr", s.handleSessionQR())

			r.Post("/send", s.handleSend())

			r.Get("/messages", s.handleListMessages())
			r.Get("/messages/{id}", s.handleGetMessage())
			r.Get("/messages/{id}/download", s.handleMediaDownload())
			r.Get("/messages/{id}/view", s.handleMediaView())

			r.Get("/chats", s.handleListChats())
			r.Delete("/chats/{chatID}", s.handleDeactivateChat())
		})
	})

	return r
}

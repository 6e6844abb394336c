// Package supervisor owns session lifecycles and runs the ingestion
// pipeline. Each session consumes its client events on a single goroutine,
// so everything a session produces is processed in arrival order.
package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tventura/watrack/internal/media"
	"github.com/tventura/watrack/internal/metrics"
	"github.com/tventura/watrack/internal/notify"
	"github.com/tventura/watrack/internal/resolve"
	"github.com/tventura/watrack/internal/store"
	"github.com/tventura/watrack/internal/wa"
	"github.com/tventura/watrack/pkg/waevent"
)

// SessionInfo is the runtime view of one supervised session.
type SessionInfo struct {
	Name      string       `json:"name"`
	AgentName string       `json:"agent_name"`
	State     wa.ConnState `json:"state"`
	CreatedAt time.Time    `json:"created_at,omitzero"`
}

// Supervisor provisions sessions, supervises their clients, and funnels
// their events through the ingestion pipeline.
type Supervisor struct {
	store   *store.Store
	media   *media.Store
	hub     *notify.Hub
	factory wa.Factory
	metrics *metrics.Metrics
	logger  *slog.Logger
	buffer  int

	mu       sync.Mutex
	sessions map[string]*session
}

// session is one supervised client plus its serialized event queue.
type session struct {
	name     string
	client   wa.Client
	resolver *resolve.Resolver

	mu    sync.Mutex
	state wa.ConnState
	qr    *wa.QRCode

	events chan sessionEvent
	done   chan struct{}
	cancel context.CancelFunc
}

// sessionEvent is the union of everything a client can emit. Exactly one
// field is set.
type sessionEvent struct {
	msg   *waevent.MessageEvent
	ack   *waevent.AckEvent
	qr    *wa.QRCode
	state *wa.ConnState
}

// New creates a Supervisor. buffer sizes each session's event queue.
func New(st *store.Store, ms *media.Store, hub *notify.Hub, factory wa.Factory, m *metrics.Metrics, buffer int, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Supervisor{
		store:    st,
		media:    ms,
		hub:      hub,
		factory:  factory,
		metrics:  m,
		logger:   logger.With("component", "supervisor"),
		buffer:   buffer,
		sessions: make(map[string]*session),
	}
}

// Provision creates a new session for the named agent, persists it, and
// starts its client. The session name is generated; agentName is the
// caller-supplied, human-facing label.
func (s *Supervisor) Provision(ctx context.Context, agentName string) (SessionInfo, error) {
	if agentName == "" {
		return SessionInfo{}, ErrAgentNameRequired
	}
	name := "agent-" + uuid.NewString()

	if err := s.store.InsertSession(ctx, name, agentName); err != nil {
		return SessionInfo{}, err
	}
	if err := s.startSession(name); err != nil {
		return SessionInfo{}, err
	}
	s.logger.Info("session provisioned", "session", name, "agent", agentName)

	info := s.info(name)
	info.AgentName = agentName
	return info, nil
}

// StartAll starts a client for every session persisted in the store. Used
// at boot so tracking resumes across restarts.
func (s *Supervisor) StartAll(ctx context.Context) error {
	persisted, err := s.store.ListSessions(ctx)
	if err != nil {
		return err
	}
	for _, sess := range persisted {
		if err := s.startSession(sess.Name); err != nil {
			if errors.Is(err, ErrAlreadyRunning) {
				continue
			}
			s.logger.Error("failed to start session", "session", sess.Name, "error", err)
		}
	}
	return nil
}

// Sessions returns all persisted sessions with their runtime state.
// Sessions in the store without a running client report the disconnected
// state.
func (s *Supervisor) Sessions(ctx context.Context) ([]SessionInfo, error) {
	persisted, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]SessionInfo, 0, len(persisted))
	for _, p := range persisted {
		info := SessionInfo{Name: p.Name, AgentName: p.AgentName, State: wa.StateDisconnected, CreatedAt: p.CreatedAt}
		s.mu.Lock()
		if sess, ok := s.sessions[p.Name]; ok {
			info.State = sess.currentState()
		}
		s.mu.Unlock()
		out = append(out, info)
	}
	return out, nil
}

// QR returns the latest pairing code for a session, or nil when the
// session is past pairing.
func (s *Supervisor) QR(name string) (*wa.QRCode, error) {
	s.mu.Lock()
	sess, ok := s.sessions[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.qr, nil
}

// Send delivers a text message through a ready session. The resulting
// ledger row is written when the client echoes the sent message back as an
// event, keeping one ingestion path for both directions.
func (s *Supervisor) Send(ctx context.Context, sessionName, to, body, quotedID string) (string, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionName]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, sessionName)
	}
	if state := sess.currentState(); state != wa.StateReady {
		return "", fmt.Errorf("%w: %s is %s", ErrSessionNotReady, sessionName, state)
	}

	id, err := sess.client.SendText(ctx, waevent.NormalizeRecipient(to), body, quotedID)
	if err != nil {
		return "", fmt.Errorf("supervisor: send via %s: %w", sessionName, err)
	}
	if s.metrics != nil {
		s.metrics.MessagesSent.Inc()
	}
	return id, nil
}

// Stop shuts every session down and waits for their pipelines to drain.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	running := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		running = append(running, sess)
	}
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range running {
		if err := sess.client.Stop(ctx); err != nil {
			s.logger.Warn("client stop failed", "session", sess.name, "error", err)
		}
		sess.cancel()
		select {
		case <-sess.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Supervisor) info(name string) SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[name]; ok {
		return SessionInfo{Name: name, State: sess.currentState()}
	}
	return SessionInfo{Name: name, State: wa.StateDisconnected}
}

func (s *Supervisor) startSession(name string) error {
	s.mu.Lock()
	if _, ok := s.sessions[name]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, name)
	}
	s.mu.Unlock()

	client, err := s.factory(name)
	if err != nil {
		return fmt.Errorf("supervisor: create client for %s: %w", name, err)
	}

	// Sessions outlive the request that provisioned them.
	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		name:     name,
		client:   client,
		resolver: resolve.New(client, s.store, s.logger),
		state:    wa.StateUninitialized,
		events:   make(chan sessionEvent, s.buffer),
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	// Handlers run on the client's read loop. Enqueueing blocks when the
	// queue is full, which keeps arrival order intact under load.
	client.SetHandlers(wa.Handlers{
		Message: func(ev waevent.MessageEvent) {
			sess.enqueue(sessCtx, sessionEvent{msg: &ev})
		},
		Ack: func(ack waevent.AckEvent) {
			sess.enqueue(sessCtx, sessionEvent{ack: &ack})
		},
		QR: func(qr wa.QRCode) {
			sess.enqueue(sessCtx, sessionEvent{qr: &qr})
		},
		State: func(state wa.ConnState) {
			sess.enqueue(sessCtx, sessionEvent{state: &state})
		},
	})

	s.mu.Lock()
	s.sessions[name] = sess
	s.mu.Unlock()

	go s.consume(sessCtx, sess)

	if err := client.Start(sessCtx); err != nil {
		cancel()
		s.mu.Lock()
		delete(s.sessions, name)
		s.mu.Unlock()
		return fmt.Errorf("supervisor: start client for %s: %w", name, err)
	}
	return nil
}

func (sess *session) enqueue(ctx context.Context, ev sessionEvent) {
	select {
	case sess.events <- ev:
	case <-ctx.Done():
	}
}

func (sess *session) currentState() wa.ConnState {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

// consume drains one session's event queue sequentially.
func (s *Supervisor) consume(ctx context.Context, sess *session) {
	defer close(sess.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sess.events:
			switch {
			case ev.msg != nil:
				s.handleMessage(ctx, sess, ev.msg)
			case ev.ack != nil:
				s.handleAck(ctx, sess, ev.ack)
			case ev.qr != nil:
				s.handleQR(sess, ev.qr)
			case ev.state != nil:
				s.handleState(sess, *ev.state)
			}
		}
	}
}

// handleMessage runs the ingestion pipeline for one message event:
// dedup, enrichment, media capture, ledger insert, chat summary, fan-out.
func (s *Supervisor) handleMessage(ctx context.Context, sess *session, ev *waevent.MessageEvent) {
	logger := s.logger.With("session", sess.name, "message_id", ev.ID)

	exists, err := s.store.MessageExists(ctx, ev.ID)
	if err != nil {
		logger.Error("dedup check failed", "error", err)
		return
	}
	if exists {
		logger.Debug("duplicate message skipped")
		if s.metrics != nil {
			s.metrics.DuplicatesSkipped.Inc()
		}
		return
	}

	enriched := sess.resolver.Enrich(ctx, ev)

	// Media capture is best effort: a failed download never blocks the
	// ledger row.
	var ref *media.Ref
	if ev.HasMedia {
		ref = s.captureMedia(ctx, sess, ev, logger)
	}

	row := buildMessage(sess.name, ev, enriched, ref)
	outcome, err := s.store.InsertMessage(ctx, row)
	if err != nil {
		logger.Error("ledger insert failed", "error", err)
		return
	}
	if outcome == store.OutcomeDuplicate {
		logger.Debug("duplicate message skipped at insert")
		if s.metrics != nil {
			s.metrics.DuplicatesSkipped.Inc()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.MessagesIngested.WithLabelValues(string(row.Kind)).Inc()
	}

	// Chat summary failures leave the message ingested; reconciliation
	// repairs the summary later.
	if err := s.store.UpsertChat(ctx, buildChat(row, enriched)); err != nil {
		logger.Error("chat summary update failed", "chat", row.ChatID, "error", err)
	}

	s.publish(notify.EventNewMessage, sess.name, row.ChatID, row)
}

func (s *Supervisor) captureMedia(ctx context.Context, sess *session, ev *waevent.MessageEvent, logger *slog.Logger) *media.Ref {
	data, mimeType, err := sess.client.DownloadMedia(ctx, ev.ID)
	if err != nil {
		logger.Warn("media download failed", "error", err)
		if s.metrics != nil {
			s.metrics.MediaFailures.Inc()
		}
		return nil
	}
	if mimeType == "" {
		mimeType = ev.MimeType
	}
	ref, err := s.media.Store(data, mimeType, ev.Kind, ev.ID)
	if err != nil {
		logger.Warn("media write failed", "error", err)
		if s.metrics != nil {
			s.metrics.MediaFailures.Inc()
		}
		return nil
	}
	return ref
}

// handleAck applies a delivery status transition. Acks for messages the
// ledger never saw are dropped quietly; the client replays status on
// reconnect.
func (s *Supervisor) handleAck(ctx context.Context, sess *session, ack *waevent.AckEvent) {
	logger := s.logger.With("session", sess.name, "message_id", ack.MessageID)

	status, ok := waevent.StatusFromAck(ack.Level)
	if !ok {
		logger.Debug("unknown ack level skipped", "level", ack.Level)
		return
	}

	err := s.store.UpdateMessageStatus(ctx, ack.MessageID, status)
	if errors.Is(err, store.ErrNotFound) {
		logger.Debug("ack for unknown message", "status", status)
		return
	}
	if err != nil {
		logger.Error("status update failed", "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.StatusUpdates.Inc()
	}

	chatID := ""
	if m, err := s.store.MessageByID(ctx, ack.MessageID); err == nil {
		chatID = m.ChatID
	}
	s.publish(notify.EventStatusUpdate, sess.name, chatID, map[string]any{
		"message_id": ack.MessageID,
		"status":     status,
	})
}

func (s *Supervisor) handleQR(sess *session, qr *wa.QRCode) {
	sess.mu.Lock()
	sess.qr = qr
	sess.mu.Unlock()

	s.logger.Info("pairing code received", "session", sess.name, "attempt", qr.Attempt)
	s.publish(notify.EventQRCode, sess.name, "", qr)
}

func (s *Supervisor) handleState(sess *session, state wa.ConnState) {
	sess.mu.Lock()
	sess.state = state
	if state == wa.StateReady || state == wa.StateAuthenticated {
		sess.qr = nil
	}
	sess.mu.Unlock()

	s.logger.Info("session state changed", "session", sess.name, "state", state)
	s.publish(notify.EventSessionStatus, sess.name, "", map[string]any{"state": state})
}

func (s *Supervisor) publish(t notify.EventType, sessionName, chatID string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("event payload marshal failed", "type", t, "error", err)
		return
	}
	s.hub.Publish(notify.Event{
		Type:      t,
		Session:   sessionName,
		ChatID:    chatID,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	})
}

// buildMessage assembles the ledger row from the raw event and its
// enrichment.
func buildMessage(sessionName string, ev *waevent.MessageEvent, en waevent.Enriched, ref *media.Ref) *store.Message {
	m := &store.Message{
		MessageID:   ev.ID,
		SessionName: sessionName,
		ChatID:      en.ChatID,
		ChatType:    en.ChatType,
		SenderID:    en.Participant.ID,
		SenderName:  en.Participant.DisplayName,
		SenderPhone: en.Participant.Phone,
		GroupName:   en.GroupName,
		Body:        ev.DisplayBody(),
		Kind:        ev.Kind,
		FromMe:      ev.FromMe,
		Status:      ev.InitialStatus(),
		HasMedia:    ev.HasMedia,
		SentAt:      ev.Timestamp,
	}
	if en.ChatType == waevent.ChatGroup {
		m.GroupID = ev.GroupID()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	if ref != nil {
		m.MediaFile = ref.Filename
		m.MediaMime = ref.MimeType
		m.MediaSize = ref.Size
	}
	if en.Reply != nil {
		m.IsReply = true
		m.QuotedID = en.Reply.QuotedID
		m.QuotedBody = en.Reply.Body
		m.QuotedSender = en.Reply.Sender
		m.QuotedKind = string(en.Reply.Kind)
	}
	return m
}

// buildChat derives the chat summary update from an ingested row.
func buildChat(m *store.Message, en waevent.Enriched) *store.Chat {
	display := en.Participant.DisplayName
	if en.ChatType == waevent.ChatGroup {
		display = en.GroupName
	}
	return &store.Chat{
		ChatID:      m.ChatID,
		SessionName: m.SessionName,
		ChatType:    m.ChatType,
		DisplayName: display,
		LastBody:    m.Body,
		LastKind:    m.Kind,
		LastSender:  m.SenderID,
		LastAt:      m.SentAt,
	}
}

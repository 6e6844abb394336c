package wa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/tventura/watrack/pkg/waevent"
)

const defaultRequestTimeout = 30 * time.Second

// BridgeClient implements Client over a WebSocket connection to the
// external browser-automation bridge. The bridge pushes event.* envelopes;
// lookups and sends are request/response pairs correlated by envelope ID.
type BridgeClient struct {
	url     string
	session string
	logger  *slog.Logger

	handlers Handlers
	timeout  time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan Envelope
	cancel  context.CancelFunc
	done    chan struct{}
}

// Compile-time interface guard.
var _ Client = (*BridgeClient)(nil)

// NewBridgeClient creates a client for one session against the bridge at
// url (e.g. "ws://127.0.0.1:4100/session").
func NewBridgeClient(url, session string, logger *slog.Logger) *BridgeClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &BridgeClient{
		url:     url,
		session: session,
		logger:  logger.With("session", session),
		timeout: defaultRequestTimeout,
		pending: make(map[string]chan Envelope),
	}
}

// SetHandlers implements Client.
func (c *BridgeClient) SetHandlers(h Handlers) {
	c.handlers = h
}

// Start implements Client. It dials the bridge, announces the session, and
// launches the read loop.
func (c *BridgeClient) Start(ctx context.Context) error {
	if c.handlers.Message == nil {
		return ErrNoHandlers
	}

	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("wa: dial bridge %s: %w", c.url, err)
	}
	// Media payloads can be large.
	conn.SetReadLimit(64 << 20)

	loopCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	if err := c.write(ctx, Envelope{
		Type:      MsgSessionStart,
		Session:   c.session,
		Timestamp: time.Now(),
	}); err != nil {
		cancel()
		_ = conn.Close(websocket.StatusInternalError, "session start failed")
		return err
	}

	c.emitState(StateInitializing)
	go c.readLoop(loopCtx, conn)
	return nil
}

// Stop implements Client. It announces the stop, closes the connection,
// and waits for the read loop to exit.
func (c *BridgeClient) Stop(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	done := c.done
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	_ = c.writeTo(ctx, conn, Envelope{
		Type:      MsgSessionStop,
		Session:   c.session,
		Timestamp: time.Now(),
	})
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "session stopped")

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// SendText implements Client.
func (c *BridgeClient) SendText(ctx context.Context, to, body, quotedID string) (string, error) {
	resp, err := c.request(ctx, MsgSendRequest, SendRequest{
		To:       waevent.NormalizeRecipient(to),
		Body:     body,
		QuotedID: quotedID,
	})
	if err != nil {
		return "", err
	}

	var sr SendResponse
	if err := json.Unmarshal(resp.Payload, &sr); err != nil {
		return "", fmt.Errorf("wa: decode send response: %w", err)
	}
	if sr.Error != "" {
		return "", fmt.Errorf("wa: send failed: %s", sr.Error)
	}
	return sr.MessageID, nil
}

// ContactName implements Client.
func (c *BridgeClient) ContactName(ctx context.Context, jid string) (ContactInfo, error) {
	resp, err := c.request(ctx, MsgContactRequest, ContactRequest{JID: jid})
	if err != nil {
		return ContactInfo{}, err
	}

	var cr ContactResponse
	if err := json.Unmarshal(resp.Payload, &cr); err != nil {
		return ContactInfo{}, fmt.Errorf("wa: decode contact response: %w", err)
	}
	if !cr.Found {
		return ContactInfo{}, ErrNotFound
	}
	return cr.Contact, nil
}

// GroupName implements Client.
func (c *BridgeClient) GroupName(ctx context.Context, jid string) (string, error) {
	resp, err := c.request(ctx, MsgGroupRequest, GroupRequest{JID: jid})
	if err != nil {
		return "", err
	}

	var gr GroupResponse
	if err := json.Unmarshal(resp.Payload, &gr); err != nil {
		return "", fmt.Errorf("wa: decode group response: %w", err)
	}
	if !gr.Found {
		return "", ErrNotFound
	}
	return gr.Name, nil
}

// MessageByID implements Client.
func (c *BridgeClient) MessageByID(ctx context.Context, id string) (*waevent.MessageEvent, error) {
	resp, err := c.request(ctx, MsgMessageRequest, MessageRequest{MessageID: id})
	if err != nil {
		return nil, err
	}

	var mr MessageResponse
	if err := json.Unmarshal(resp.Payload, &mr); err != nil {
		return nil, fmt.Errorf("wa: decode message response: %w", err)
	}
	if !mr.Found {
		return nil, ErrNotFound
	}
	return &mr.Event, nil
}

// DownloadMedia implements Client.
func (c *BridgeClient) DownloadMedia(ctx context.Context, messageID string) ([]byte, string, error) {
	resp, err := c.request(ctx, MsgMediaRequest, MediaRequest{MessageID: messageID})
	if err != nil {
		return nil, "", err
	}

	var mr MediaResponse
	if err := json.Unmarshal(resp.Payload, &mr); err != nil {
		return nil, "", fmt.Errorf("wa: decode media response: %w", err)
	}
	if mr.Error != "" {
		return nil, "", fmt.Errorf("wa: media download failed: %s", mr.Error)
	}
	if len(mr.Data) == 0 {
		return nil, "", ErrNotFound
	}
	return mr.Data, mr.MimeType, nil
}

// request sends an envelope and waits for the correlated response.
func (c *BridgeClient) request(ctx context.Context, typ MsgType, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("wa: marshal %s: %w", typ, err)
	}

	id := uuid.NewString()
	ch := make(chan Envelope, 1)

	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return Envelope{}, ErrNotConnected
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	env := Envelope{
		Type:      typ,
		ID:        id,
		Session:   c.session,
		Payload:   data,
		Timestamp: time.Now(),
	}
	if err := c.write(ctx, env); err != nil {
		return Envelope{}, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Type == MsgError {
			return Envelope{}, fmt.Errorf("wa: bridge error for %s: %s", typ, string(resp.Payload))
		}
		return resp, nil
	case <-timer.C:
		return Envelope{}, ErrRequestTimeout
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

func (c *BridgeClient) write(ctx context.Context, env Envelope) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	return c.writeTo(ctx, conn, env)
}

func (c *BridgeClient) writeTo(ctx context.Context, conn *websocket.Conn, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("wa: marshal envelope: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("wa: write %s: %w", env.Type, err)
	}
	return nil
}

// readLoop dispatches bridge envelopes until the connection drops. Event
// envelopes are delivered to handlers in arrival order, which is what
// preserves per-session ordering downstream.
func (c *BridgeClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer close(c.done)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
				c.logger.Warn("bridge connection lost", "error", err)
				c.emitState(StateDisconnected)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("invalid envelope from bridge", "error", err)
			continue
		}

		switch env.Type {
		case MsgEventMessage:
			var ev waevent.MessageEvent
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				c.logger.Warn("invalid message event", "error", err)
				continue
			}
			c.handlers.Message(ev)

		case MsgEventAck:
			var ack waevent.AckEvent
			if err := json.Unmarshal(env.Payload, &ack); err != nil {
				c.logger.Warn("invalid ack event", "error", err)
				continue
			}
			if c.handlers.Ack != nil {
				c.handlers.Ack(ack)
			}

		case MsgEventQR:
			var qr QRCode
			if err := json.Unmarshal(env.Payload, &qr); err != nil {
				c.logger.Warn("invalid qr event", "error", err)
				continue
			}
			if c.handlers.QR != nil {
				c.handlers.QR(qr)
			}

		case MsgEventState:
			var sp StatePayload
			if err := json.Unmarshal(env.Payload, &sp); err != nil {
				c.logger.Warn("invalid state event", "error", err)
				continue
			}
			c.emitState(sp.State)

		default:
			// Correlated response to a pending request.
			c.mu.Lock()
			ch, ok := c.pending[env.ID]
			c.mu.Unlock()
			if !ok {
				c.logger.Debug("uncorrelated envelope from bridge",
					"type", string(env.Type),
					"id", env.ID,
				)
				continue
			}
			// Buffered channel of one: a duplicate response is dropped
			// rather than blocking the read loop.
			select {
			case ch <- env:
			default:
			}
		}
	}
}

func (c *BridgeClient) emitState(state ConnState) {
	if c.handlers.State != nil {
		c.handlers.State(state)
	}
}

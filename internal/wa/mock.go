package wa

import (
	"context"
	"fmt"
	"sync"

	"github.com/tventura/watrack/pkg/waevent"
)

// MockClient is a test double that implements Client. Tests drive the
// pipeline by calling the Simulate* methods, which invoke the registered
// handlers exactly like a real connection's read loop would.
type MockClient struct {
	mu       sync.Mutex
	handlers Handlers
	started  bool

	// Lookup fixtures. Missing keys yield ErrNotFound.
	Contacts map[string]ContactInfo
	Groups   map[string]string
	Messages map[string]waevent.MessageEvent
	Media    map[string]MockMedia

	// MediaErr, if set, makes every DownloadMedia call fail.
	MediaErr error

	// SendFunc, if set, is called instead of the default recording behavior.
	SendFunc func(ctx context.Context, to, body, quotedID string) (string, error)

	sent   []MockSend
	nextID int
}

// MockMedia is a downloadable attachment fixture.
type MockMedia struct {
	Data     []byte
	MimeType string
}

// MockSend records one SendText call.
type MockSend struct {
	To       string
	Body     string
	QuotedID string
}

// Compile-time interface guard.
var _ Client = (*MockClient)(nil)

// NewMockClient creates an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		Contacts: make(map[string]ContactInfo),
		Groups:   make(map[string]string),
		Messages: make(map[string]waevent.MessageEvent),
		Media:    make(map[string]MockMedia),
	}
}

// SetHandlers implements Client.
func (m *MockClient) SetHandlers(h Handlers) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = h
}

// Start implements Client. It reports the initializing state and nothing
// more; tests advance the state machine via SimulateState.
func (m *MockClient) Start(_ context.Context) error {
	m.mu.Lock()
	if m.handlers.Message == nil {
		m.mu.Unlock()
		return ErrNoHandlers
	}
	m.started = true
	h := m.handlers
	m.mu.Unlock()

	if h.State != nil {
		h.State(StateInitializing)
	}
	return nil
}

// Stop implements Client.
func (m *MockClient) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	return nil
}

// SendText implements Client. It records the send and returns a generated
// message identifier.
func (m *MockClient) SendText(ctx context.Context, to, body, quotedID string) (string, error) {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, to, body, quotedID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, MockSend{To: to, Body: body, QuotedID: quotedID})
	m.nextID++
	return fmt.Sprintf("true_%s_MOCK%04d", to, m.nextID), nil
}

// ContactName implements Client.
func (m *MockClient) ContactName(_ context.Context, jid string) (ContactInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.Contacts[jid]
	if !ok {
		return ContactInfo{}, ErrNotFound
	}
	return info, nil
}

// GroupName implements Client.
func (m *MockClient) GroupName(_ context.Context, jid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.Groups[jid]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

// MessageByID implements Client.
func (m *MockClient) MessageByID(_ context.Context, id string) (*waevent.MessageEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.Messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ev, nil
}

// DownloadMedia implements Client.
func (m *MockClient) DownloadMedia(_ context.Context, messageID string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MediaErr != nil {
		return nil, "", m.MediaErr
	}
	media, ok := m.Media[messageID]
	if !ok {
		return nil, "", ErrNotFound
	}
	return media.Data, media.MimeType, nil
}

// SimulateMessage delivers a message event to the registered handler.
func (m *MockClient) SimulateMessage(ev waevent.MessageEvent) {
	m.handler().Message(ev)
}

// SimulateAck delivers an acknowledgement event.
func (m *MockClient) SimulateAck(ack waevent.AckEvent) {
	if h := m.handler(); h.Ack != nil {
		h.Ack(ack)
	}
}

// SimulateQR delivers a QR code event.
func (m *MockClient) SimulateQR(qr QRCode) {
	if h := m.handler(); h.QR != nil {
		h.QR(qr)
	}
}

// SimulateState delivers a connection state transition.
func (m *MockClient) SimulateState(state ConnState) {
	if h := m.handler(); h.State != nil {
		h.State(state)
	}
}

// SentMessages returns a copy of all recorded sends.
func (m *MockClient) SentMessages() []MockSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockSend, len(m.sent))
	copy(cp, m.sent)
	return cp
}

func (m *MockClient) handler() Handlers {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handlers
}

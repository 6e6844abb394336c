// Package wa defines the boundary to the messaging-client collaborator:
// the Client interface the pipeline consumes, the connection state machine,
// and a WebSocket bridge implementation that talks to the external
// browser-automation process.
package wa

import (
	"context"

	"github.com/tventura/watrack/pkg/waevent"
)

// ConnState is the lifecycle state of one messaging-client connection.
type ConnState string

// Connection states. Disconnected and auth_failed are terminal for a
// connection instance; a fresh provisioning call starts a new attempt.
const (
	StateUninitialized ConnState = "uninitialized"
	StateInitializing  ConnState = "initializing"
	StateQRPending     ConnState = "qr_pending"
	StateAuthenticated ConnState = "authenticated"
	StateReady         ConnState = "ready"
	StateAuthFailed    ConnState = "auth_failed"
	StateDisconnected  ConnState = "disconnected"
)

// Terminal reports whether the state ends the connection instance.
func (s ConnState) Terminal() bool {
	return s == StateDisconnected || s == StateAuthFailed
}

// QRCode is an authentication QR payload issued during pairing.
type QRCode struct {
	Base64  string `json:"base64"`
	URLCode string `json:"url_code,omitempty"`
	Attempt int    `json:"attempt"`
}

// ContactInfo is display metadata for a contact, as known to the client.
type ContactInfo struct {
	Pushname  string `json:"pushname,omitempty"`
	SavedName string `json:"saved_name,omitempty"`
}

// Handlers receives asynchronous callbacks from the client. All handlers
// are invoked from the client's read loop; implementations must not block.
type Handlers struct {
	Message func(waevent.MessageEvent)
	Ack     func(waevent.AckEvent)
	QR      func(QRCode)
	State   func(ConnState)
}

// Client is one messaging-client connection for one agent session.
//
// SetHandlers must be called before Start. Lookup methods are best-effort:
// callers are expected to recover from ErrNotFound and ErrNotConnected
// with fallback values.
type Client interface {
	// SetHandlers registers the callback set. Called once, before Start.
	SetHandlers(h Handlers)

	// Start begins the connection attempt. State transitions are reported
	// asynchronously through the State handler.
	Start(ctx context.Context) error

	// Stop tears the connection down.
	Stop(ctx context.Context) error

	// SendText sends a text message, optionally quoting another message.
	// Returns the client-assigned message identifier.
	SendText(ctx context.Context, to, body, quotedID string) (string, error)

	// ContactName fetches display metadata for a participant.
	ContactName(ctx context.Context, jid string) (ContactInfo, error)

	// GroupName fetches the display name of a group chat.
	GroupName(ctx context.Context, jid string) (string, error)

	// MessageByID fetches a message the client still holds, used to
	// snapshot quoted messages that never reached the ledger.
	MessageByID(ctx context.Context, id string) (*waevent.MessageEvent, error)

	// DownloadMedia fetches and decrypts a message's attachment bytes.
	// The second return value is the attachment MIME type.
	DownloadMedia(ctx context.Context, messageID string) ([]byte, string, error)
}

// Factory creates a Client for a named agent session.
type Factory func(sessionName string) (Client, error)

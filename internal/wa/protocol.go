package wa

import (
	"encoding/json"
	"time"

	"github.com/tventura/watrack/pkg/waevent"
)

// MsgType identifies the kind of envelope exchanged with the bridge
// process.
type MsgType string

// Protocol message types. event.* flow bridge→backend; *.request /
// *.response pairs are backend-initiated and correlated by envelope ID.
const (
	MsgSessionStart MsgType = "session.start"
	MsgSessionStop  MsgType = "session.stop"

	MsgEventMessage MsgType = "event.message"
	MsgEventAck     MsgType = "event.ack"
	MsgEventQR      MsgType = "event.qr"
	MsgEventState   MsgType = "event.state"

	MsgSendRequest     MsgType = "send.request"
	MsgSendResponse    MsgType = "send.response"
	MsgContactRequest  MsgType = "contact.request"
	MsgContactResponse MsgType = "contact.response"
	MsgGroupRequest    MsgType = "group.request"
	MsgGroupResponse   MsgType = "group.response"
	MsgMessageRequest  MsgType = "message.request"
	MsgMessageResponse MsgType = "message.response"
	MsgMediaRequest    MsgType = "media.request"
	MsgMediaResponse   MsgType = "media.response"

	MsgError MsgType = "error"
)

// Envelope is the framing for all bridge messages.
type Envelope struct {
	Type      MsgType         `json:"type"`
	ID        string          `json:"id,omitempty"`
	Session   string          `json:"session,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// StatePayload carries a connection state transition.
type StatePayload struct {
	State ConnState `json:"state"`
}

// SendRequest asks the bridge to send a text message.
type SendRequest struct {
	To       string `json:"to"`
	Body     string `json:"body"`
	QuotedID string `json:"quoted_id,omitempty"`
}

// SendResponse reports the outcome of a send.
type SendResponse struct {
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ContactRequest asks for contact display metadata.
type ContactRequest struct {
	JID string `json:"jid"`
}

// ContactResponse carries contact metadata; Found is false for unknown
// contacts.
type ContactResponse struct {
	Found   bool        `json:"found"`
	Contact ContactInfo `json:"contact"`
}

// GroupRequest asks for a group's display name.
type GroupRequest struct {
	JID string `json:"jid"`
}

// GroupResponse carries a group name; Found is false for unknown groups.
type GroupResponse struct {
	Found bool   `json:"found"`
	Name  string `json:"name,omitempty"`
}

// MessageRequest asks for a message still held by the client.
type MessageRequest struct {
	MessageID string `json:"message_id"`
}

// MessageResponse carries the requested message event.
type MessageResponse struct {
	Found bool                 `json:"found"`
	Event waevent.MessageEvent `json:"event"`
}

// MediaRequest asks the bridge to download and decrypt an attachment.
type MediaRequest struct {
	MessageID string `json:"message_id"`
}

// MediaResponse carries attachment bytes (base64 on the wire) or an error
// string when the download failed.
type MediaResponse struct {
	Data     []byte `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Error    string `json:"error,omitempty"`
}

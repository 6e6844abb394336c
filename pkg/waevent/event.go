package waevent

import "time"

// MessageEvent is a raw inbound or outbound message observed by the
// messaging client. It is delivered via asynchronous callback and carries
// only client-supplied data; enrichment happens in the resolver.
type MessageEvent struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	Kind      Kind      `json:"kind"`
	IsGroup   bool      `json:"is_group"`
	Author    string    `json:"author,omitempty"`
	FromMe    bool      `json:"from_me"`
	HasMedia  bool      `json:"has_media"`
	MimeType  string    `json:"mime_type,omitempty"`
	HasQuoted bool      `json:"has_quoted"`
	QuotedID  string    `json:"quoted_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatID derives the logical chat this event belongs to: a group-suffixed
// party wins, otherwise the non-self party.
func (e *MessageEvent) ChatID() string {
	switch {
	case IsGroupJID(e.From):
		return e.From
	case IsGroupJID(e.To):
		return e.To
	case e.FromMe:
		return e.To
	default:
		return e.From
	}
}

// GroupID returns the group identifier for group events, or "" for
// individual chats.
func (e *MessageEvent) GroupID() string {
	if !e.IsGroup {
		return ""
	}
	return e.ChatID()
}

// DisplayBody returns the message body, substituting a kind placeholder
// when a media message carries no caption.
func (e *MessageEvent) DisplayBody() string {
	if e.Body == "" && e.Kind.HasMedia() {
		return e.Kind.Placeholder()
	}
	return e.Body
}

// InitialStatus returns the status a message starts its lifecycle with.
// Outbound messages await acknowledgements; inbound messages have by
// definition already been delivered to this client.
func (e *MessageEvent) InitialStatus() Status {
	if e.FromMe {
		return StatusPending
	}
	return StatusDelivered
}

// AckEvent is a delivery/read acknowledgement for a previously observed
// message.
type AckEvent struct {
	MessageID string `json:"message_id"`
	Level     int    `json:"level"`
}

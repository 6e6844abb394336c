package waevent

import "time"

// Class is the tagged variant of an enriched event. Downstream components
// branch on it instead of re-inspecting raw client payloads.
type Class string

const (
	// ClassText is a plain text message.
	ClassText Class = "text"
	// ClassMedia is a message carrying a downloadable attachment.
	ClassMedia Class = "media"
	// ClassGroupEvent is a group lifecycle notification (subject change,
	// join, leave).
	ClassGroupEvent Class = "group_event"
)

// Participant is the resolved logical counterpart of a message: the sender
// for inbound messages, the recipient for outbound ones, or the group
// author for group events.
type Participant struct {
	ID          string `json:"id"`
	Phone       string `json:"phone"`
	DisplayName string `json:"display_name"`
	Pushname    string `json:"pushname,omitempty"`
}

// ReplySnapshot is a point-in-time copy of a quoted message's metadata,
// captured when the reply is ingested. It is a snapshot, not a live
// reference: later revocation of the quoted message does not alter it.
// Resolved is false when the quoted content could not be fetched; the
// reply linkage is preserved regardless.
type ReplySnapshot struct {
	QuotedID  string    `json:"quoted_id"`
	Resolved  bool      `json:"resolved"`
	Body      string    `json:"body,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	Kind      Kind      `json:"kind,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Enriched is the resolver's output: a raw event augmented with resolved
// participant, chat, and reply metadata, ready for ledger insertion.
type Enriched struct {
	Class       Class          `json:"class"`
	ChatID      string         `json:"chat_id"`
	ChatType    ChatType       `json:"chat_type"`
	GroupName   string         `json:"group_name,omitempty"`
	Participant Participant    `json:"participant"`
	Reply       *ReplySnapshot `json:"reply,omitempty"`
}

// IsReply reports whether the enriched event is a reply to another message.
func (e *Enriched) IsReply() bool {
	return e.Reply != nil
}

// Classify derives the tagged variant for a raw event.
func Classify(ev *MessageEvent) Class {
	switch {
	case ev.Kind == KindGroupEvent:
		return ClassGroupEvent
	case ev.Kind.HasMedia():
		return ClassMedia
	default:
		return ClassText
	}
}

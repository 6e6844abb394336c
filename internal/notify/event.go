// Package notify fans ingestion and session events out to interested
// subscribers. Delivery is best effort: a subscriber that cannot keep up
// loses events rather than slowing the pipeline down.
package notify

import (
	"encoding/json"
	"time"
)

// EventType identifies what a fan-out event describes.
type EventType string

const (
	// EventNewMessage is published after a message is ingested.
	EventNewMessage EventType = "new-message"

	// EventStatusUpdate is published after a delivery status change.
	EventStatusUpdate EventType = "status-update"

	// EventSessionStatus is published on session lifecycle transitions.
	EventSessionStatus EventType = "session-status"

	// EventQRCode is published when a session needs pairing.
	EventQRCode EventType = "qr-code"
)

// Event is a single fan-out notification.
type Event struct {
	Type      EventType       `json:"type"`
	Session   string          `json:"session"`
	ChatID    string          `json:"chat_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Topics returns the topics this event is published under.
func (e Event) Topics() []string {
	topics := []string{TopicGlobal}
	if e.Session != "" {
		topics = append(topics, SessionTopic(e.Session))
	}
	if e.ChatID != "" {
		topics = append(topics, ChatTopic(e.ChatID))
	}
	return topics
}

// TopicGlobal receives every published event.
const TopicGlobal = "global"

// SessionTopic returns the topic scoped to a single session.
func SessionTopic(name string) string {
	return "session-" + name
}

// ChatTopic returns the topic scoped to a single chat.
func ChatTopic(chatID string) string {
	return "chat-" + chatID
}

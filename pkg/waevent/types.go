// Package waevent defines the data contract between the messaging client
// and the ingestion pipeline: raw message and acknowledgement events,
// message kinds and statuses, and the enriched descriptor produced by the
// participant resolver.
package waevent

import "strings"

// Address suffixes used by the client's JID scheme.
const (
	// IndividualSuffix terminates one-to-one participant identifiers.
	IndividualSuffix = "@c.us"
	// GroupSuffix terminates group chat identifiers.
	GroupSuffix = "@g.us"
)

// Kind classifies the content of a message event.
type Kind string

// Supported message kinds.
const (
	KindText       Kind = "text"
	KindImage      Kind = "image"
	KindVideo      Kind = "video"
	KindAudio      Kind = "audio"
	KindVoice      Kind = "ptt"
	KindDocument   Kind = "document"
	KindSticker    Kind = "sticker"
	KindGroupEvent Kind = "group_event"
)

// HasMedia reports whether messages of this kind carry a downloadable
// attachment.
func (k Kind) HasMedia() bool {
	switch k {
	case KindImage, KindVideo, KindAudio, KindVoice, KindDocument, KindSticker:
		return true
	}
	return false
}

// Placeholder returns the bracketed body substitute used when a media
// message carries no caption, e.g. "[IMAGE]".
func (k Kind) Placeholder() string {
	return "[" + strings.ToUpper(string(k)) + "]"
}

// Status is the lifecycle status of a message.
type Status string

// Message statuses. Revocation is modeled as a status, never a deletion.
const (
	StatusPending      Status = "pending"
	StatusSent         Status = "sent"
	StatusDelivered    Status = "delivered"
	StatusRead         Status = "read"
	StatusPlayed       Status = "played"
	StatusFailed       Status = "failed"
	StatusRevoked      Status = "revoked"
	StatusRevokedForMe Status = "revoked_for_me"
)

// StatusFromAck maps a client acknowledgement level to a Status.
// The bool result is false for unknown levels.
func StatusFromAck(level int) (Status, bool) {
	switch level {
	case -1:
		return StatusFailed, true
	case 0:
		return StatusPending, true
	case 1:
		return StatusSent, true
	case 2:
		return StatusDelivered, true
	case 3:
		return StatusRead, true
	case 4:
		return StatusPlayed, true
	}
	return "", false
}

// ChatType discriminates individual and group conversations.
type ChatType string

const (
	// ChatIndividual is a one-to-one conversation with a single counterpart.
	ChatIndividual ChatType = "individual"
	// ChatGroup is a multi-participant group conversation.
	ChatGroup ChatType = "group"
)

// IsGroupJID reports whether the identifier uses the group address suffix.
func IsGroupJID(jid string) bool {
	return strings.HasSuffix(jid, GroupSuffix)
}

// DisplayID strips the address-scheme suffix from a participant identifier
// for display purposes. Unsuffixed identifiers pass through unchanged.
func DisplayID(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		return jid[:i]
	}
	return jid
}

// NormalizeRecipient converts a digits-only phone number into the client's
// individual address scheme. Identifiers that already carry a suffix pass
// through unchanged.
func NormalizeRecipient(to string) string {
	if strings.ContainsRune(to, '@') {
		return to
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, to)
	return digits + IndividualSuffix
}

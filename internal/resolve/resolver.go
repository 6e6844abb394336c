// Package resolve enriches raw message events with participant identity,
// chat classification, and reply snapshots before they reach the ledger.
package resolve

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tventura/watrack/internal/wa"
	"github.com/tventura/watrack/pkg/waevent"
)

// UnknownGroupName is used when a group's subject cannot be resolved.
const UnknownGroupName = "Unknown Group"

// Directory answers identity lookups against the live messaging client.
type Directory interface {
	ContactName(ctx context.Context, jid string) (wa.ContactInfo, error)
	GroupName(ctx context.Context, jid string) (string, error)
	MessageByID(ctx context.Context, id string) (*waevent.MessageEvent, error)
}

// Archive answers reply lookups against already-ingested messages.
type Archive interface {
	QuotedSnapshot(ctx context.Context, messageID string) (*waevent.ReplySnapshot, error)
}

// Resolver turns a raw MessageEvent into an Enriched view. Lookups are
// best effort: a failed directory or archive call degrades the result
// instead of failing the pipeline.
type Resolver struct {
	dir     Directory
	archive Archive
	logger  *slog.Logger
}

// New creates a Resolver.
func New(dir Directory, archive Archive, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		dir:     dir,
		archive: archive,
		logger:  logger.With("component", "resolve"),
	}
}

// Enrich resolves the participant, chat identity, and reply context for a
// message event. It never returns an error: anything unresolvable falls
// back to identifiers derived from the event itself.
func (r *Resolver) Enrich(ctx context.Context, ev *waevent.MessageEvent) waevent.Enriched {
	out := waevent.Enriched{
		Class:  waevent.Classify(ev),
		ChatID: ev.ChatID(),
	}
	if ev.IsGroup {
		out.ChatType = waevent.ChatGroup
	} else {
		out.ChatType = waevent.ChatIndividual
	}

	out.Participant = r.participant(ctx, ev)

	if ev.IsGroup {
		out.GroupName = r.groupName(ctx, ev.GroupID())
	}

	if ev.HasQuoted && ev.QuotedID != "" {
		out.Reply = r.reply(ctx, ev.QuotedID)
	}

	return out
}

// participant identifies who the message row should be attributed to: the
// counterpart for own messages, the group author for group messages, and
// the sender otherwise.
func (r *Resolver) participant(ctx context.Context, ev *waevent.MessageEvent) waevent.Participant {
	id := ev.From
	switch {
	case ev.FromMe:
		id = ev.To
	case ev.IsGroup && ev.Author != "":
		id = ev.Author
	}

	p := waevent.Participant{
		ID:    id,
		Phone: waevent.DisplayID(id),
	}

	info, err := r.dir.ContactName(ctx, id)
	if err != nil {
		if !errors.Is(err, wa.ErrNotFound) {
			r.logger.Warn("contact lookup failed", "jid", id, "error", err)
		}
		p.DisplayName = p.Phone
		return p
	}

	p.Pushname = info.Pushname
	switch {
	case info.SavedName != "":
		p.DisplayName = info.SavedName
	case info.Pushname != "":
		p.DisplayName = info.Pushname
	default:
		p.DisplayName = p.Phone
	}
	return p
}

func (r *Resolver) groupName(ctx context.Context, groupID string) string {
	if groupID == "" {
		return UnknownGroupName
	}
	name, err := r.dir.GroupName(ctx, groupID)
	if err != nil || name == "" {
		if err != nil && !errors.Is(err, wa.ErrNotFound) {
			r.logger.Warn("group lookup failed", "jid", groupID, "error", err)
		}
		return UnknownGroupName
	}
	return name
}

// reply builds a snapshot of the quoted message, preferring the local
// ledger and falling back to the live client. An unresolvable quote still
// records the quoted id.
func (r *Resolver) reply(ctx context.Context, quotedID string) *waevent.ReplySnapshot {
	snap, err := r.archive.QuotedSnapshot(ctx, quotedID)
	if err == nil {
		return snap
	}

	ev, err := r.dir.MessageByID(ctx, quotedID)
	if err == nil && ev != nil {
		return &waevent.ReplySnapshot{
			QuotedID:  quotedID,
			Resolved:  true,
			Body:      ev.DisplayBody(),
			Sender:    ev.From,
			Kind:      ev.Kind,
			Timestamp: ev.Timestamp,
		}
	}
	if err != nil && !errors.Is(err, wa.ErrNotFound) {
		r.logger.Warn("quoted message lookup failed", "quoted_id", quotedID, "error", err)
	}

	return &waevent.ReplySnapshot{QuotedID: quotedID, Resolved: false}
}

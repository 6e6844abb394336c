package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/tventura/watrack/internal/wa"
	"github.com/tventura/watrack/pkg/waevent"
)

type fakeArchive struct {
	snapshots map[string]*waevent.ReplySnapshot
}

func (f *fakeArchive) QuotedSnapshot(_ context.Context, id string) (*waevent.ReplySnapshot, error) {
	if snap, ok := f.snapshots[id]; ok {
		return snap, nil
	}
	return nil, wa.ErrNotFound
}

func newTestResolver() (*Resolver, *wa.MockClient, *fakeArchive) {
	client := wa.NewMockClient()
	archive := &fakeArchive{snapshots: map[string]*waevent.ReplySnapshot{}}
	return New(client, archive, nil), client, archive
}

func TestEnrichIndividualContact(t *testing.T) {
	t.Parallel()
	r, client, _ := newTestResolver()
	client.Contacts["5511999999999@c.us"] = wa.ContactInfo{Pushname: "dana_w", SavedName: "Dana"}

	ev := &waevent.MessageEvent{
		ID:   "false_5511999999999@c.us_A1",
		From: "5511999999999@c.us",
		To:   "5511888888888@c.us",
		Body: "oi",
		Kind: waevent.KindText,
	}
	got := r.Enrich(context.Background(), ev)

	if got.ChatType != waevent.ChatIndividual || got.ChatID != ev.From {
		t.Errorf("chat = %s/%s", got.ChatType, got.ChatID)
	}
	if got.Participant.DisplayName != "Dana" {
		t.Errorf("DisplayName = %q, saved name should win over pushname", got.Participant.DisplayName)
	}
	if got.Participant.Phone != "5511999999999" {
		t.Errorf("Phone = %q", got.Participant.Phone)
	}
}

func TestEnrichFallsBackToPhone(t *testing.T) {
	t.Parallel()
	r, _, _ := newTestResolver()

	ev := &waevent.MessageEvent{
		ID:   "false_5511000000000@c.us_A2",
		From: "5511000000000@c.us",
		To:   "me@c.us",
	}
	got := r.Enrich(context.Background(), ev)
	if got.Participant.DisplayName != "5511000000000" {
		t.Errorf("DisplayName = %q, want bare phone fallback", got.Participant.DisplayName)
	}
}

func TestEnrichOwnMessageUsesCounterpart(t *testing.T) {
	t.Parallel()
	r, client, _ := newTestResolver()
	client.Contacts["5511777777777@c.us"] = wa.ContactInfo{Pushname: "Bea"}

	ev := &waevent.MessageEvent{
		ID:     "true_5511777777777@c.us_A3",
		From:   "me@c.us",
		To:     "5511777777777@c.us",
		FromMe: true,
	}
	got := r.Enrich(context.Background(), ev)
	if got.Participant.ID != ev.To || got.Participant.DisplayName != "Bea" {
		t.Errorf("participant = %+v, want counterpart of own message", got.Participant)
	}
}

func TestEnrichGroupAuthorAndName(t *testing.T) {
	t.Parallel()
	r, client, _ := newTestResolver()
	client.Contacts["5511666666666@c.us"] = wa.ContactInfo{Pushname: "Caio"}
	client.Groups["123-456@g.us"] = "Familia"

	ev := &waevent.MessageEvent{
		ID:      "false_123-456@g.us_A4",
		From:    "123-456@g.us",
		To:      "me@c.us",
		IsGroup: true,
		Author:  "5511666666666@c.us",
	}
	got := r.Enrich(context.Background(), ev)

	if got.ChatType != waevent.ChatGroup || got.GroupName != "Familia" {
		t.Errorf("group = %s %q", got.ChatType, got.GroupName)
	}
	if got.Participant.ID != ev.Author || got.Participant.DisplayName != "Caio" {
		t.Errorf("participant = %+v, want group author", got.Participant)
	}
}

func TestEnrichUnknownGroupName(t *testing.T) {
	t.Parallel()
	r, _, _ := newTestResolver()

	ev := &waevent.MessageEvent{
		ID:      "false_999@g.us_A5",
		From:    "999@g.us",
		IsGroup: true,
	}
	got := r.Enrich(context.Background(), ev)
	if got.GroupName != UnknownGroupName {
		t.Errorf("GroupName = %q", got.GroupName)
	}
}

func TestEnrichReplyFromArchive(t *testing.T) {
	t.Parallel()
	r, _, archive := newTestResolver()
	archive.snapshots["false_x@c.us_OLD"] = &waevent.ReplySnapshot{
		QuotedID: "false_x@c.us_OLD",
		Resolved: true,
		Body:     "original text",
		Sender:   "x@c.us",
		Kind:     waevent.KindText,
	}

	ev := &waevent.MessageEvent{
		ID:        "false_x@c.us_NEW",
		From:      "x@c.us",
		HasQuoted: true,
		QuotedID:  "false_x@c.us_OLD",
	}
	got := r.Enrich(context.Background(), ev)
	if !got.IsReply() || !got.Reply.Resolved || got.Reply.Body != "original text" {
		t.Errorf("reply = %+v", got.Reply)
	}
}

func TestEnrichReplyFallsBackToClient(t *testing.T) {
	t.Parallel()
	r, client, _ := newTestResolver()
	client.Messages["false_x@c.us_REMOTE"] = waevent.MessageEvent{
		ID:        "false_x@c.us_REMOTE",
		From:      "x@c.us",
		Kind:      waevent.KindImage,
		HasMedia:  true,
		Timestamp: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	ev := &waevent.MessageEvent{
		ID:        "false_x@c.us_NEW2",
		From:      "x@c.us",
		HasQuoted: true,
		QuotedID:  "false_x@c.us_REMOTE",
	}
	got := r.Enrich(context.Background(), ev)
	if !got.Reply.Resolved || got.Reply.Body != "[IMAGE]" {
		t.Errorf("reply = %+v, want client fallback with placeholder body", got.Reply)
	}
}

func TestEnrichReplyUnresolvable(t *testing.T) {
	t.Parallel()
	r, _, _ := newTestResolver()

	ev := &waevent.MessageEvent{
		ID:        "false_x@c.us_NEW3",
		From:      "x@c.us",
		HasQuoted: true,
		QuotedID:  "false_x@c.us_GONE",
	}
	got := r.Enrich(context.Background(), ev)
	if got.Reply == nil || got.Reply.Resolved || got.Reply.QuotedID != "false_x@c.us_GONE" {
		t.Errorf("reply = %+v, want unresolved snapshot keeping quoted id", got.Reply)
	}
}

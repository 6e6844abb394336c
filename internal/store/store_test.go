package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tventura/watrack/pkg/waevent"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testMessage(id string) *Message {
	return &Message{
		MessageID:   id,
		SessionName: "agent-1",
		ChatID:      "5511999999999@c.us",
		ChatType:    waevent.ChatIndividual,
		SenderID:    "5511999999999@c.us",
		SenderName:  "Dana",
		Body:        "hello",
		Kind:        waevent.KindText,
		Status:      waevent.StatusDelivered,
		SentAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestInsertMessageIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := testMessage("false_5511999999999@c.us_AAA")

	exists, err := s.MessageExists(ctx, m.MessageID)
	if err != nil || exists {
		t.Fatalf("MessageExists before insert = %v, %v", exists, err)
	}

	if out, err := s.InsertMessage(ctx, m); err != nil || out != OutcomeInserted {
		t.Fatalf("first insert = %v, %v", out, err)
	}
	if out, err := s.InsertMessage(ctx, m); err != nil || out != OutcomeDuplicate {
		t.Fatalf("second insert = %v, %v, want duplicate", out, err)
	}

	exists, err = s.MessageExists(ctx, m.MessageID)
	if err != nil || !exists {
		t.Fatalf("MessageExists after insert = %v, %v", exists, err)
	}

	_, total, err := s.ListMessages(ctx, MessageFilter{})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1 row after duplicate insert", total)
	}
}

func TestUpdateMessageStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := testMessage("true_x@c.us_BBB")
	m.FromMe = true
	m.Status = waevent.StatusPending
	if _, err := s.InsertMessage(ctx, m); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.UpdateMessageStatus(ctx, m.MessageID, waevent.StatusRead); err != nil {
		t.Fatalf("UpdateMessageStatus: %v", err)
	}
	got, err := s.MessageByID(ctx, m.MessageID)
	if err != nil {
		t.Fatalf("MessageByID: %v", err)
	}
	if got.Status != waevent.StatusRead {
		t.Errorf("Status = %s, want read", got.Status)
	}

	err = s.UpdateMessageStatus(ctx, "true_x@c.us_NOPE", waevent.StatusRead)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("update of unknown message = %v, want ErrNotFound", err)
	}
}

func TestQuotedSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := testMessage("false_x@c.us_QUOTED")
	if _, err := s.InsertMessage(ctx, m); err != nil {
		t.Fatalf("insert: %v", err)
	}

	snap, err := s.QuotedSnapshot(ctx, m.MessageID)
	if err != nil {
		t.Fatalf("QuotedSnapshot: %v", err)
	}
	if !snap.Resolved || snap.Body != "hello" || snap.Sender != m.SenderID || snap.Kind != waevent.KindText {
		t.Errorf("snapshot = %+v", snap)
	}
	if !snap.Timestamp.Equal(m.SentAt) {
		t.Errorf("snapshot timestamp = %v, want %v", snap.Timestamp, m.SentAt)
	}

	_, err = s.QuotedSnapshot(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("QuotedSnapshot(missing) = %v, want ErrNotFound", err)
	}
}

func TestListMessagesFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	media := testMessage("false_x@c.us_M1")
	media.Kind = waevent.KindImage
	media.HasMedia = true
	media.SentAt = base.Add(time.Minute)

	group := testMessage("false_g@g.us_G1")
	group.ChatID = "123-456@g.us"
	group.ChatType = waevent.ChatGroup
	group.SentAt = base.Add(2 * time.Minute)

	for _, m := range []*Message{testMessage("false_x@c.us_T1"), media, group} {
		if _, err := s.InsertMessage(ctx, m); err != nil {
			t.Fatalf("insert %s: %v", m.MessageID, err)
		}
	}

	yes := true
	got, total, err := s.ListMessages(ctx, MessageFilter{HasMedia: &yes})
	if err != nil {
		t.Fatalf("ListMessages(media): %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].MessageID != media.MessageID {
		t.Errorf("media filter got %d/%d", len(got), total)
	}

	got, total, err = s.ListMessages(ctx, MessageFilter{IsGroup: &yes})
	if err != nil {
		t.Fatalf("ListMessages(group): %v", err)
	}
	if total != 1 || got[0].ChatID != group.ChatID {
		t.Errorf("group filter got %d rows, first %+v", total, got[0])
	}

	// Newest first, pagination.
	got, total, err = s.ListMessages(ctx, MessageFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListMessages(page): %v", err)
	}
	if total != 3 || len(got) != 2 || got[0].MessageID != group.MessageID {
		t.Errorf("pagination got %d rows of %d, first %s", len(got), total, got[0].MessageID)
	}
}

func TestUpsertChatLastProcessedWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	late := &Chat{
		ChatID:      "5511999999999@c.us",
		SessionName: "agent-1",
		ChatType:    waevent.ChatIndividual,
		DisplayName: "Dana",
		LastBody:    "newer message",
		LastKind:    waevent.KindText,
		LastSender:  "5511999999999@c.us",
		LastAt:      time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
	}
	if err := s.UpsertChat(ctx, late); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Older timestamp processed later still replaces the summary.
	early := *late
	early.LastBody = "older but processed later"
	early.DisplayName = ""
	early.LastAt = late.LastAt.Add(-time.Hour)
	if err := s.UpsertChat(ctx, &early); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.ChatByKey(ctx, late.ChatID, late.SessionName)
	if err != nil {
		t.Fatalf("ChatByKey: %v", err)
	}
	if got.LastBody != early.LastBody {
		t.Errorf("LastBody = %q, want last processed to win", got.LastBody)
	}
	if got.DisplayName != "Dana" {
		t.Errorf("DisplayName = %q, empty update should keep existing name", got.DisplayName)
	}

	chats, err := s.ListChats(ctx, "agent-1", false)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 1 {
		t.Errorf("ListChats = %d rows, want single row per chat key", len(chats))
	}
}

func TestSetChatActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &Chat{
		ChatID: "1@c.us", SessionName: "agent-1", ChatType: waevent.ChatIndividual,
		LastAt: time.Now().UTC(),
	}
	if err := s.UpsertChat(ctx, c); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.SetChatActive(ctx, c.ChatID, c.SessionName, false); err != nil {
		t.Fatalf("SetChatActive: %v", err)
	}

	visible, err := s.ListChats(ctx, "agent-1", false)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(visible) != 0 {
		t.Errorf("inactive chat still listed")
	}
	all, err := s.ListChats(ctx, "agent-1", true)
	if err != nil || len(all) != 1 {
		t.Errorf("ListChats(includeInactive) = %d, %v", len(all), err)
	}

	if err := s.SetChatActive(ctx, "nope@c.us", "agent-1", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetChatActive(unknown) = %v, want ErrNotFound", err)
	}
}

func TestReconcileChats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := testMessage("false_x@c.us_ORPHAN")
	if _, err := s.InsertMessage(ctx, m); err != nil {
		t.Fatalf("insert: %v", err)
	}

	n, err := s.ReconcileChats(ctx)
	if err != nil {
		t.Fatalf("ReconcileChats: %v", err)
	}
	if n != 1 {
		t.Errorf("reconciled = %d, want 1", n)
	}

	c, err := s.ChatByKey(ctx, m.ChatID, m.SessionName)
	if err != nil {
		t.Fatalf("ChatByKey after reconcile: %v", err)
	}
	if c.LastBody != m.Body || c.DisplayName != m.SenderName {
		t.Errorf("rebuilt summary = %+v", c)
	}

	// Second run finds nothing to repair.
	n, err = s.ReconcileChats(ctx)
	if err != nil || n != 0 {
		t.Errorf("second reconcile = %d, %v", n, err)
	}
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertSession(ctx, "agent-abc", "billing-bot"); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	got, err := s.SessionByName(ctx, "agent-abc")
	if err != nil || got.Name != "agent-abc" || got.AgentName != "billing-bot" {
		t.Fatalf("SessionByName = %+v, %v", got, err)
	}

	_, err = s.SessionByName(ctx, "agent-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SessionByName(missing) = %v, want ErrNotFound", err)
	}

	all, err := s.ListSessions(ctx)
	if err != nil || len(all) != 1 || all[0].AgentName != "billing-bot" {
		t.Errorf("ListSessions = %+v, %v", all, err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := s1.InsertMessage(context.Background(), testMessage("false_x@c.us_R1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_ = s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()
	exists, err := s2.MessageExists(context.Background(), "false_x@c.us_R1")
	if err != nil || !exists {
		t.Errorf("row lost across reopen: %v, %v", exists, err)
	}
}

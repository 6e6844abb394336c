package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tventura/watrack/pkg/waevent"
)

// timeFormat is the canonical timestamp encoding for all rows.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Message is one ledger row.
type Message struct {
	MessageID   string          `json:"message_id"`
	SessionName string          `json:"session_name"`
	ChatID      string          `json:"chat_id"`
	ChatType    waevent.ChatType `json:"chat_type"`
	SenderID    string          `json:"sender_id"`
	SenderName  string          `json:"sender_name,omitempty"`
	SenderPhone string          `json:"sender_phone,omitempty"`
	GroupID     string          `json:"group_id,omitempty"`
	GroupName   string          `json:"group_name,omitempty"`
	Body        string          `json:"body"`
	Kind        waevent.Kind    `json:"kind"`
	FromMe      bool            `json:"from_me"`
	Status      waevent.Status  `json:"status"`
	HasMedia    bool            `json:"has_media"`
	MediaFile   string          `json:"media_file,omitempty"`
	MediaMime   string          `json:"media_mime,omitempty"`
	MediaSize   int64           `json:"media_size,omitempty"`
	IsReply     bool            `json:"is_reply"`
	QuotedID    string          `json:"quoted_id,omitempty"`
	QuotedBody  string          `json:"quoted_body,omitempty"`
	QuotedSender string         `json:"quoted_sender,omitempty"`
	QuotedKind  string          `json:"quoted_kind,omitempty"`
	SentAt      time.Time       `json:"sent_at"`
}

// IngestOutcome reports what InsertMessage did.
type IngestOutcome int

const (
	// OutcomeInserted means a new row was written.
	OutcomeInserted IngestOutcome = iota
	// OutcomeDuplicate means a row with the same message_id already existed.
	OutcomeDuplicate
)

const messageColumns = `message_id, session_name, chat_id, chat_type, sender_id,
	sender_name, sender_phone, group_id, group_name, body, kind, from_me, status,
	has_media, media_file, media_mime, media_size, is_reply, quoted_id,
	quoted_body, quoted_sender, quoted_kind, sent_at`

// MessageExists reports whether a message with the given client id has
// already been ingested.
func (s *Store) MessageExists(ctx context.Context, messageID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM messages WHERE message_id = ?", messageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: check message %s: %w", messageID, err)
	}
	return true, nil
}

// InsertMessage writes a ledger row. A unique-constraint violation on
// message_id is not an error: it reports OutcomeDuplicate so concurrent
// redelivery stays idempotent.
func (s *Store) InsertMessage(ctx context.Context, m *Message) (IngestOutcome, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MessageID, m.SessionName, m.ChatID, string(m.ChatType), m.SenderID,
		m.SenderName, m.SenderPhone, m.GroupID, m.GroupName, m.Body, string(m.Kind),
		boolToInt(m.FromMe), string(m.Status), boolToInt(m.HasMedia), m.MediaFile,
		m.MediaMime, m.MediaSize, boolToInt(m.IsReply), m.QuotedID, m.QuotedBody,
		m.QuotedSender, m.QuotedKind, m.SentAt.UTC().Format(timeFormat))
	if err != nil {
		if isUniqueViolation(err) {
			return OutcomeDuplicate, nil
		}
		return 0, fmt.Errorf("store: insert message %s: %w", m.MessageID, err)
	}
	return OutcomeInserted, nil
}

// UpdateMessageStatus changes the delivery status of a message. Returns
// ErrNotFound when no row matches the id.
func (s *Store) UpdateMessageStatus(ctx context.Context, messageID string, status waevent.Status) error {
	res, err := s.db.ExecContext(ctx, "UPDATE messages SET status = ? WHERE message_id = ?", string(status), messageID)
	if err != nil {
		return fmt.Errorf("store: update status for %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update status for %s: %w", messageID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	return nil
}

// MessageByID fetches a single ledger row by its client message id.
func (s *Store) MessageByID(ctx context.Context, messageID string) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE message_id = ?`, messageID)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load message %s: %w", messageID, err)
	}
	return m, nil
}

// QuotedSnapshot returns the fields a reply snapshot needs from an
// already-ingested message, without loading the whole row.
func (s *Store) QuotedSnapshot(ctx context.Context, messageID string) (*waevent.ReplySnapshot, error) {
	var (
		body, sender, kind, sentAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT body, sender_id, kind, sent_at FROM messages WHERE message_id = ?", messageID).
		Scan(&body, &sender, &kind, &sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load quoted message %s: %w", messageID, err)
	}
	ts, _ := time.Parse(timeFormat, sentAt)
	return &waevent.ReplySnapshot{
		QuotedID:  messageID,
		Resolved:  true,
		Body:      body,
		Sender:    sender,
		Kind:      waevent.Kind(kind),
		Timestamp: ts,
	}, nil
}

// MessageFilter narrows ListMessages results. Zero values mean "any".
type MessageFilter struct {
	SessionName string
	ChatID      string
	Kind        waevent.Kind
	HasMedia    *bool
	IsGroup     *bool
	Limit       int
	Offset      int
}

// ListMessages returns messages newest first, plus the total row count for
// the filter so callers can paginate.
func (s *Store) ListMessages(ctx context.Context, f MessageFilter) ([]*Message, int, error) {
	where, args := f.clauses()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count messages: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT ` + messageColumns + ` FROM messages` + where +
		" ORDER BY sent_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: list messages: %w", err)
	}
	return out, total, nil
}

func (f MessageFilter) clauses() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.SessionName != "" {
		conds = append(conds, "session_name = ?")
		args = append(args, f.SessionName)
	}
	if f.ChatID != "" {
		conds = append(conds, "chat_id = ?")
		args = append(args, f.ChatID)
	}
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.HasMedia != nil {
		conds = append(conds, "has_media = ?")
		args = append(args, boolToInt(*f.HasMedia))
	}
	if f.IsGroup != nil {
		conds = append(conds, "chat_type = ?")
		if *f.IsGroup {
			args = append(args, string(waevent.ChatGroup))
		} else {
			args = append(args, string(waevent.ChatIndividual))
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var (
		m                         Message
		chatType, kind, status    string
		fromMe, hasMedia, isReply int
		sentAt                    string
	)
	err := row.Scan(&m.MessageID, &m.SessionName, &m.ChatID, &chatType, &m.SenderID,
		&m.SenderName, &m.SenderPhone, &m.GroupID, &m.GroupName, &m.Body, &kind,
		&fromMe, &status, &hasMedia, &m.MediaFile, &m.MediaMime, &m.MediaSize,
		&isReply, &m.QuotedID, &m.QuotedBody, &m.QuotedSender, &m.QuotedKind, &sentAt)
	if err != nil {
		return nil, err
	}
	m.ChatType = waevent.ChatType(chatType)
	m.Kind = waevent.Kind(kind)
	m.Status = waevent.Status(status)
	m.FromMe = fromMe != 0
	m.HasMedia = hasMedia != 0
	m.IsReply = isReply != 0
	m.SentAt, _ = time.Parse(timeFormat, sentAt)
	return &m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
// modernc.org/sqlite surfaces these as plain errors carrying the SQLite
// message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tventura/watrack/pkg/waevent"

	"database/sql"
)

// Chat is one conversation summary row, keyed by (chat_id, session_name).
type Chat struct {
	ChatID      string           `json:"chat_id"`
	SessionName string           `json:"session_name"`
	ChatType    waevent.ChatType `json:"chat_type"`
	DisplayName string           `json:"display_name"`
	LastBody    string           `json:"last_body"`
	LastKind    waevent.Kind     `json:"last_kind"`
	LastSender  string           `json:"last_sender"`
	LastAt      time.Time        `json:"last_at"`
	Active      bool             `json:"active"`
}

// UpsertChat creates or refreshes a chat summary. The summary always
// reflects the most recently processed message, regardless of its
// timestamp: late-arriving events overwrite the previous summary.
func (s *Store) UpsertChat(ctx context.Context, c *Chat) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO chats
		(chat_id, session_name, chat_type, display_name, last_body, last_kind, last_sender, last_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(chat_id, session_name) DO UPDATE SET
			chat_type    = excluded.chat_type,
			display_name = CASE WHEN excluded.display_name != '' THEN excluded.display_name ELSE chats.display_name END,
			last_body    = excluded.last_body,
			last_kind    = excluded.last_kind,
			last_sender  = excluded.last_sender,
			last_at      = excluded.last_at,
			active       = 1,
			updated_at   = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
		c.ChatID, c.SessionName, string(c.ChatType), c.DisplayName, c.LastBody,
		string(c.LastKind), c.LastSender, c.LastAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("store: upsert chat %s/%s: %w", c.ChatID, c.SessionName, err)
	}
	return nil
}

// ChatByKey fetches a single chat summary.
func (s *Store) ChatByKey(ctx context.Context, chatID, sessionName string) (*Chat, error) {
	row := s.db.QueryRowContext(ctx, `SELECT chat_id, session_name, chat_type, display_name,
		last_body, last_kind, last_sender, last_at, active
		FROM chats WHERE chat_id = ? AND session_name = ?`, chatID, sessionName)
	c, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: chat %s/%s", ErrNotFound, chatID, sessionName)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load chat %s/%s: %w", chatID, sessionName, err)
	}
	return c, nil
}

// ListChats returns chat summaries, most recently active first. An empty
// sessionName lists chats across all sessions. Inactive chats are excluded
// unless includeInactive is set.
func (s *Store) ListChats(ctx context.Context, sessionName string, includeInactive bool) ([]*Chat, error) {
	query := `SELECT chat_id, session_name, chat_type, display_name,
		last_body, last_kind, last_sender, last_at, active FROM chats`
	var (
		conds []string
		args  []any
	)
	if sessionName != "" {
		conds = append(conds, "session_name = ?")
		args = append(args, sessionName)
	}
	if !includeInactive {
		conds = append(conds, "active = 1")
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY last_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list chats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan chat: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list chats: %w", err)
	}
	return out, nil
}

// SetChatActive flips a chat's visibility without deleting its history.
func (s *Store) SetChatActive(ctx context.Context, chatID, sessionName string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE chats SET active = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now') WHERE chat_id = ? AND session_name = ?",
		boolToInt(active), chatID, sessionName)
	if err != nil {
		return fmt.Errorf("store: set chat active %s/%s: %w", chatID, sessionName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: set chat active %s/%s: %w", chatID, sessionName, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: chat %s/%s", ErrNotFound, chatID, sessionName)
	}
	return nil
}

// ReconcileChats repairs chat summaries that drifted from the message
// ledger: any (chat_id, session_name) pair present in messages but missing
// from chats gets a summary rebuilt from its newest message. Returns the
// number of summaries created.
func (s *Store) ReconcileChats(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO chats
		(chat_id, session_name, chat_type, display_name, last_body, last_kind, last_sender, last_at, active)
		SELECT m.chat_id, m.session_name, m.chat_type,
			CASE WHEN m.group_name != '' THEN m.group_name ELSE m.sender_name END,
			m.body, m.kind, m.sender_id, m.sent_at, 1
		FROM messages m
		WHERE m.id IN (
			SELECT MAX(id) FROM messages GROUP BY chat_id, session_name
		)
		AND NOT EXISTS (
			SELECT 1 FROM chats c
			WHERE c.chat_id = m.chat_id AND c.session_name = m.session_name
		)`)
	if err != nil {
		return 0, fmt.Errorf("store: reconcile chats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: reconcile chats: %w", err)
	}
	return int(n), nil
}

func scanChat(row rowScanner) (*Chat, error) {
	var (
		c                Chat
		chatType, kind   string
		lastAt           string
		active           int
	)
	err := row.Scan(&c.ChatID, &c.SessionName, &chatType, &c.DisplayName,
		&c.LastBody, &kind, &c.LastSender, &lastAt, &active)
	if err != nil {
		return nil, err
	}
	c.ChatType = waevent.ChatType(chatType)
	c.LastKind = waevent.Kind(kind)
	c.Active = active != 0
	c.LastAt, _ = time.Parse(timeFormat, lastAt)
	return &c, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Session is a provisioned tracking session: a generated unique name plus
// the caller-supplied, human-facing agent name. Runtime connection state
// lives with the supervisor; only these fields persist.
type Session struct {
	Name      string    `json:"name"`
	AgentName string    `json:"agent_name"`
	CreatedAt time.Time `json:"created_at"`
}

// InsertSession records a newly provisioned session.
func (s *Store) InsertSession(ctx context.Context, name, agentName string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (name, agent_name) VALUES (?, ?)", name, agentName)
	if err != nil {
		return fmt.Errorf("store: insert session %s: %w", name, err)
	}
	return nil
}

// SessionByName fetches a single provisioned session.
func (s *Store) SessionByName(ctx context.Context, name string) (*Session, error) {
	var (
		agentName string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT agent_name, created_at FROM sessions WHERE name = ?", name).
		Scan(&agentName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load session %s: %w", name, err)
	}
	sess := &Session{Name: name, AgentName: agentName}
	sess.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return sess, nil
}

// ListSessions returns every provisioned session, oldest first.
func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, agent_name, created_at FROM sessions ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Session
	for rows.Next() {
		var (
			sess      Session
			createdAt string
		)
		if err := rows.Scan(&sess.Name, &sess.AgentName, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		sess.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		out = append(out, &sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	return out, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id    TEXT    NOT NULL UNIQUE,
		session_name  TEXT    NOT NULL,
		chat_id       TEXT    NOT NULL,
		chat_type     TEXT    NOT NULL,
		sender_id     TEXT    NOT NULL,
		sender_name   TEXT    NOT NULL DEFAULT '',
		sender_phone  TEXT    NOT NULL DEFAULT '',
		group_id      TEXT    NOT NULL DEFAULT '',
		group_name    TEXT    NOT NULL DEFAULT '',
		body          TEXT    NOT NULL DEFAULT '',
		kind          TEXT    NOT NULL,
		from_me       INTEGER NOT NULL DEFAULT 0,
		status        TEXT    NOT NULL,
		has_media     INTEGER NOT NULL DEFAULT 0,
		media_file    TEXT    NOT NULL DEFAULT '',
		media_mime    TEXT    NOT NULL DEFAULT '',
		media_size    INTEGER NOT NULL DEFAULT 0,
		is_reply      INTEGER NOT NULL DEFAULT 0,
		quoted_id     TEXT    NOT NULL DEFAULT '',
		quoted_body   TEXT    NOT NULL DEFAULT '',
		quoted_sender TEXT    NOT NULL DEFAULT '',
		quoted_kind   TEXT    NOT NULL DEFAULT '',
		sent_at       TEXT    NOT NULL,
		created_at    TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, session_name, sent_at)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_name, sent_at)`,

	`CREATE TABLE IF NOT EXISTS chats (
		chat_id       TEXT    NOT NULL,
		session_name  TEXT    NOT NULL,
		chat_type     TEXT    NOT NULL,
		display_name  TEXT    NOT NULL DEFAULT '',
		last_body     TEXT    NOT NULL DEFAULT '',
		last_kind     TEXT    NOT NULL DEFAULT '',
		last_sender   TEXT    NOT NULL DEFAULT '',
		last_at       TEXT    NOT NULL,
		active        INTEGER NOT NULL DEFAULT 1,
		created_at    TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		updated_at    TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		PRIMARY KEY (chat_id, session_name)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_chats_recency ON chats(session_name, last_at DESC)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		name       TEXT PRIMARY KEY,
		agent_name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, making migration idempotent.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

	// Ensure schema_version table exists first.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("store: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("store: record schema version: %w", err)
	}

	return nil
}

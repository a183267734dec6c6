package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// ErrNoSession is returned by Load when nothing has been saved yet.
var ErrNoSession = errors.New("no saved session")

// SessionEntry is one persisted host history slot.
type SessionEntry struct {
	Path    string
	Title   string
	Payload []byte
}

// SessionStore persists the host's session history between runs.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a session store using the given database.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db.Conn()}
}

// Save replaces the stored session with entries and cursor.
func (ss *SessionStore) Save(ctx context.Context, entries []SessionEntry, cursor int) error {
	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_entries`); err != nil {
		return fmt.Errorf("clearing entries: %w", err)
	}
	for i, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_entries (position, path, title, payload) VALUES (?, ?, ?, ?)`,
			i, e.Path, e.Title, e.Payload,
		); err != nil {
			return fmt.Errorf("inserting entry %d: %w", i, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session_meta (key, value) VALUES ('cursor', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(cursor),
	); err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}

	return tx.Commit()
}

// Load returns the stored entries and cursor, or ErrNoSession.
func (ss *SessionStore) Load(ctx context.Context) ([]SessionEntry, int, error) {
	rows, err := ss.db.QueryContext(ctx,
		`SELECT path, title, payload FROM session_entries ORDER BY position`,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []SessionEntry
	for rows.Next() {
		var e SessionEntry
		if err := rows.Scan(&e.Path, &e.Title, &e.Payload); err != nil {
			return nil, 0, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(entries) == 0 {
		return nil, 0, ErrNoSession
	}

	var value string
	err = ss.db.QueryRowContext(ctx, `SELECT value FROM session_meta WHERE key = 'cursor'`).Scan(&value)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("loading cursor: %w", err)
	}
	cursor, _ := strconv.Atoi(value)
	if cursor < 0 || cursor >= len(entries) {
		cursor = len(entries) - 1
	}
	return entries, cursor, nil
}

// Clear deletes the stored session.
func (ss *SessionStore) Clear(ctx context.Context) error {
	if _, err := ss.db.ExecContext(ctx, `DELETE FROM session_entries`); err != nil {
		return fmt.Errorf("clearing entries: %w", err)
	}
	if _, err := ss.db.ExecContext(ctx, `DELETE FROM session_meta`); err != nil {
		return fmt.Errorf("clearing meta: %w", err)
	}
	return nil
}

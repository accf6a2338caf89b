// Package settings implements the persisted key-value store shared with the UI.
//
// Values are stored as JSON so that callers get back the same dynamic shape
// they wrote (string, number, bool, object). The engine binding reads and
// writes the library directory through it under the "libPath" key.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidKey is returned for an empty key.
var ErrInvalidKey = errors.New("settings: key cannot be empty")

// Store is a SQLite-backed settings store.
//
// Thread Safety: safe for concurrent use; serialisation is left to database/sql.
type Store struct {
	db *sql.DB
}

// NewStore creates a store on an open, migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the decoded value for key. The bool reports whether the key exists.
func (s *Store) Get(ctx context.Context, key string) (any, bool, error) {
	if key == "" {
		return nil, false, ErrInvalidKey
	}

	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying setting %q: %w", key, err)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, false, fmt.Errorf("decoding setting %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	if key == "" {
		return ErrInvalidKey
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding setting %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

// Has reports whether key exists.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrInvalidKey
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM settings WHERE key = ?", key).Scan(&n); err != nil {
		return false, fmt.Errorf("querying setting %q: %w", key, err)
	}
	return n > 0, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting setting %q: %w", key, err)
	}
	return nil
}

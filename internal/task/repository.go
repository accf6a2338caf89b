package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository persists device task lists.
type Repository interface {
	// Load returns the saved list for a device.
	// Returns ErrListNotFound if nothing is saved.
	Load(ctx context.Context, uuid string) ([]Descriptor, error)

	// Save replaces the saved list for a device.
	Save(ctx context.Context, uuid string, list []Descriptor) error

	// Delete removes the saved list. Deleting a missing list is not an error.
	Delete(ctx context.Context, uuid string) error

	// Devices returns the uuids that have a saved list.
	Devices(ctx context.Context) ([]string, error)
}

// SQLiteRepository implements Repository using the task_lists table.
// Lists are stored as the JSON array the UI reads.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Load returns the saved list for a device.
func (r *SQLiteRepository) Load(ctx context.Context, uuid string) ([]Descriptor, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		"SELECT tasks FROM task_lists WHERE device_uuid = ?", uuid,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying task list: %w", err)
	}

	var list []Descriptor
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("unmarshalling task list: %w", err)
	}
	return list, nil
}

// Save replaces the saved list for a device.
func (r *SQLiteRepository) Save(ctx context.Context, uuid string, list []Descriptor) error {
	if uuid == "" {
		return fmt.Errorf("device uuid is required")
	}
	if list == nil {
		list = []Descriptor{}
	}

	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshalling task list: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO task_lists (device_uuid, tasks, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(device_uuid) DO UPDATE SET tasks = excluded.tasks, updated_at = excluded.updated_at`,
		uuid, string(raw), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing task list: %w", err)
	}
	return nil
}

// Delete removes the saved list.
func (r *SQLiteRepository) Delete(ctx context.Context, uuid string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM task_lists WHERE device_uuid = ?", uuid); err != nil {
		return fmt.Errorf("deleting task list: %w", err)
	}
	return nil
}

// Devices returns the uuids that have a saved list.
func (r *SQLiteRepository) Devices(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT device_uuid FROM task_lists ORDER BY device_uuid")
	if err != nil {
		return nil, fmt.Errorf("querying task lists: %w", err)
	}
	defer rows.Close()

	var uuids []string
	for rows.Next() {
		var uuid string
		if err := rows.Scan(&uuid); err != nil {
			return nil, fmt.Errorf("scanning task list: %w", err)
		}
		uuids = append(uuids, uuid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task lists: %w", err)
	}
	return uuids, nil
}

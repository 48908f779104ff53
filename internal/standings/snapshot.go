package standings

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotStore persists the last published table per window so reporting
// collaborators can re-serve it without re-running the aggregation.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore creates a snapshot store over the given database handle.
func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save serializes the table and upserts it under its window label.
func (s *SnapshotStore) Save(table *Table) error {
	payload, err := msgpack.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to encode standings snapshot: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO standings_snapshots (window_label, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(window_label) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		table.Window, payload, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to persist standings snapshot: %w", err)
	}
	log.Debug("Saved standings snapshot", "window", table.Window, "bytes", len(payload))
	return nil
}

// Load returns the stored table for a window label, or false when no
// snapshot exists.
func (s *SnapshotStore) Load(windowLabel string) (*Table, bool, error) {
	var payload []byte
	err := s.db.QueryRow(
		"SELECT payload FROM standings_snapshots WHERE window_label = ?", windowLabel).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var table Table
	if err := msgpack.Unmarshal(payload, &table); err != nil {
		return nil, false, fmt.Errorf("failed to decode standings snapshot: %w", err)
	}
	return &table, true, nil
}

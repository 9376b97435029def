// Package session persists resumable client state between runs: the active
// workshop, cached judge evaluation results, and scratch notes, each stored
// as a JSON blob with a timestamp for TTL expiry.
package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// Blob kinds with their conventional TTLs. Evaluations go stale quickly;
// notes and the active-workshop pointer live for a week.
const (
	KindActiveWorkshop = "active_workshop"
	KindEvaluations    = "evaluations"
	KindScratchNotes   = "scratch_notes"

	TTLEvaluations = time.Hour
	TTLNotes       = 7 * 24 * time.Hour
)

const schema = `
CREATE TABLE IF NOT EXISTS session_blobs (
	workshop_id TEXT NOT NULL,
	kind        TEXT NOT NULL,
	payload     TEXT NOT NULL,
	saved_at    INTEGER NOT NULL,
	ttl_seconds INTEGER NOT NULL,
	PRIMARY KEY (workshop_id, kind)
);`

// Store is a small SQLite-backed blob store keyed by (workshop id, kind).
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open opens (and if needed creates) the session database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init session schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Save marshals payload and upserts it under (workshopID, kind) with the
// given TTL.
func (s *Store) Save(workshopID, kind string, payload interface{}, ttl time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal session payload: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO session_blobs (workshop_id, kind, payload, saved_at, ttl_seconds)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (workshop_id, kind) DO UPDATE SET
			payload = excluded.payload,
			saved_at = excluded.saved_at,
			ttl_seconds = excluded.ttl_seconds`,
		workshopID, kind, string(data), time.Now().Unix(), int64(ttl.Seconds()))
	if err != nil {
		return fmt.Errorf("failed to save session blob: %w", err)
	}
	return nil
}

// Load unmarshals the blob under (workshopID, kind) into out. It returns
// false when no blob exists or the stored one has expired; expired blobs
// are deleted on the way out.
func (s *Store) Load(workshopID, kind string, out interface{}) (bool, error) {
	var row struct {
		Payload    string `db:"payload"`
		SavedAt    int64  `db:"saved_at"`
		TTLSeconds int64  `db:"ttl_seconds"`
	}
	err := s.db.Get(&row, `
		SELECT payload, saved_at, ttl_seconds FROM session_blobs
		WHERE workshop_id = ? AND kind = ?`, workshopID, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load session blob: %w", err)
	}

	age := time.Since(time.Unix(row.SavedAt, 0))
	if row.TTLSeconds > 0 && age > time.Duration(row.TTLSeconds)*time.Second {
		if _, err := s.db.Exec(`DELETE FROM session_blobs WHERE workshop_id = ? AND kind = ?`, workshopID, kind); err != nil {
			s.logger.Warn("Failed to delete expired session blob", zap.Error(err))
		}
		return false, nil
	}

	if err := json.Unmarshal([]byte(row.Payload), out); err != nil {
		return false, fmt.Errorf("failed to unmarshal session payload: %w", err)
	}
	return true, nil
}

// Clear removes every blob for a workshop.
func (s *Store) Clear(workshopID string) error {
	if _, err := s.db.Exec(`DELETE FROM session_blobs WHERE workshop_id = ?`, workshopID); err != nil {
		return fmt.Errorf("failed to clear session blobs: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

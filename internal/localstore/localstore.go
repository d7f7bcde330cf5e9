// Package localstore provides the durable key-value layer the client
// persists its state into between runs.
//
// The store is an embedded SQLite database (WAL mode) holding one
// table of string keys to serialized values. Five slots exist, all
// namespaced under a process-wide prefix:
//
//	<prefix>__settings      sync configuration (object)
//	<prefix>__symptoms      full symptom snapshot (array)
//	<prefix>__history       full metric snapshot (array)
//	<prefix>__changesToPush persisted pending-change queue (array)
//	<prefix>__lastPullDate  latest successful pull anchor (ISO-8601)
//
// Writes always store the full per-slot snapshot, not deltas; totals
// are small enough that simplicity beats write amplification.
package localstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/symtrack/symtrack/internal/domain"
)

// DefaultPrefix is the namespace for persisted keys.
const DefaultPrefix = "health"

// Slot names within the namespace.
const (
	slotSettings      = "settings"
	slotSymptoms      = "symptoms"
	slotHistory       = "history"
	slotChangesToPush = "changesToPush"
	slotLastPullDate  = "lastPullDate"
)

// timeLayout serializes instants as ISO-8601 with millisecond
// precision, matching what the wire format uses.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Store is the SQLite-backed key-value adapter.
type Store struct {
	conn   *sql.DB
	path   string
	prefix string
}

// Open creates (or opens) the database at path.
//
// The database runs in embedded mode with WAL for concurrent reads.
// The caller MUST call Close() when done.
//
// Example:
//
//	store, err := localstore.Open(filepath.Join(dataDir, "symtrack.db"), localstore.DefaultPrefix)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path, prefix string) (*Store, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{conn: conn, path: path, prefix: prefix}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) key(slot string) string {
	return s.prefix + "__" + slot
}

// set upserts a raw value into a slot.
func (s *Store) set(slot, value string) error {
	_, err := s.conn.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		s.key(slot), value,
	)
	if err != nil {
		return fmt.Errorf("failed to write slot %s: %w", slot, err)
	}
	return nil
}

// get reads a raw value. The second return reports presence.
func (s *Store) get(slot string) (string, bool, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, s.key(slot)).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read slot %s: %w", slot, err)
	}
	return value, true, nil
}

// deleteSlot removes a slot. Deleting a missing slot is a no-op.
func (s *Store) deleteSlot(slot string) error {
	if _, err := s.conn.Exec(`DELETE FROM kv WHERE key = ?`, s.key(slot)); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", slot, err)
	}
	return nil
}

func (s *Store) setJSON(slot string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal slot %s: %w", slot, err)
	}
	return s.set(slot, string(data))
}

func (s *Store) getJSON(slot string, v any) (bool, error) {
	raw, ok, err := s.get(slot)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to parse slot %s: %w", slot, err)
	}
	return true, nil
}

// SaveSettings persists the settings object.
func (s *Store) SaveSettings(settings domain.Settings) error {
	return s.setJSON(slotSettings, settings)
}

// LoadSettings reads the settings object. A missing slot returns the
// zero value and false.
func (s *Store) LoadSettings() (domain.Settings, bool, error) {
	var settings domain.Settings
	ok, err := s.getJSON(slotSettings, &settings)
	return settings, ok, err
}

// SaveSymptoms persists the full symptom snapshot.
func (s *Store) SaveSymptoms(symptoms []domain.Symptom) error {
	if symptoms == nil {
		symptoms = []domain.Symptom{}
	}
	return s.setJSON(slotSymptoms, symptoms)
}

// LoadSymptoms reads the symptom snapshot. A missing slot returns an
// empty slice.
func (s *Store) LoadSymptoms() ([]domain.Symptom, error) {
	var symptoms []domain.Symptom
	if _, err := s.getJSON(slotSymptoms, &symptoms); err != nil {
		return nil, err
	}
	return symptoms, nil
}

// SaveMetrics persists the full metric snapshot under the history slot.
func (s *Store) SaveMetrics(metrics []domain.Metric) error {
	if metrics == nil {
		metrics = []domain.Metric{}
	}
	return s.setJSON(slotHistory, metrics)
}

// LoadMetrics reads the metric snapshot. A missing slot returns an
// empty slice.
func (s *Store) LoadMetrics() ([]domain.Metric, error) {
	var metrics []domain.Metric
	if _, err := s.getJSON(slotHistory, &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

// SaveQueue persists the pending-change queue snapshot.
func (s *Store) SaveQueue(changes []domain.ChangeToPush) error {
	if changes == nil {
		changes = []domain.ChangeToPush{}
	}
	return s.setJSON(slotChangesToPush, changes)
}

// LoadQueue reads the pending-change queue snapshot.
func (s *Store) LoadQueue() ([]domain.ChangeToPush, error) {
	var changes []domain.ChangeToPush
	if _, err := s.getJSON(slotChangesToPush, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// SaveLastPullDate persists the pull anchor as an ISO-8601 string.
func (s *Store) SaveLastPullDate(at time.Time) error {
	return s.set(slotLastPullDate, at.UTC().Format(timeLayout))
}

// LoadLastPullDate reads the pull anchor. A missing slot returns nil.
func (s *Store) LoadLastPullDate() (*time.Time, error) {
	raw, ok, err := s.get(slotLastPullDate)
	if err != nil || !ok {
		return nil, err
	}
	at, err := time.Parse(timeLayout, raw)
	if err != nil {
		// Older snapshots may carry other RFC3339 precisions.
		at, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last pull date %q: %w", raw, err)
		}
	}
	return &at, nil
}

// DeleteLastPullDate clears the pull anchor, forcing the next pull to
// fetch everything.
func (s *Store) DeleteLastPullDate() error {
	return s.deleteSlot(slotLastPullDate)
}

// Reset removes every slot in this store's namespace.
func (s *Store) Reset() error {
	for _, slot := range []string{slotSettings, slotSymptoms, slotHistory, slotChangesToPush, slotLastPullDate} {
		if err := s.deleteSlot(slot); err != nil {
			return err
		}
	}
	return nil
}

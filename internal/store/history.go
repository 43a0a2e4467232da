package store

import (
	"database/sql"
	"time"
)

// DefaultHistoryLimit is used when List is called with a non-positive limit.
const DefaultHistoryLimit = 20

// KindSentence marks a finished fingerspelled sentence. Label holds its text.
const KindSentence = "sentence"

// HistoryEntry is one recorded event.
type HistoryEntry struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Kind       string    `json:"kind"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HistoryRepository provides access to the history table.
type HistoryRepository struct {
	db *sql.DB
}

// History returns the history repository for this store.
func (s *Store) History() *HistoryRepository {
	return &HistoryRepository{db: s.db}
}

// Create inserts an entry. A zero CreatedAt is set to now.
func (r *HistoryRepository) Create(e *HistoryEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO history (id, session_id, kind, label, confidence, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Kind, e.Label, e.Confidence, e.Source, e.CreatedAt,
	)
	return err
}

// List returns the most recent entries, newest first.
func (r *HistoryRepository) List(limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return r.query(
		`SELECT id, session_id, kind, label, confidence, source, created_at
		 FROM history ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
}

// ListBySession returns a session's entries, newest first.
func (r *HistoryRepository) ListBySession(sessionID string, limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return r.query(
		`SELECT id, session_id, kind, label, confidence, source, created_at
		 FROM history WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		sessionID, limit,
	)
}

// Delete removes an entry by its ID.
func (r *HistoryRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM history WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Prune deletes entries older than before and returns how many were removed.
func (r *HistoryRepository) Prune(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM history WHERE created_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *HistoryRepository) query(q string, args ...any) ([]*HistoryEntry, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		e := &HistoryEntry{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Label, &e.Confidence, &e.Source, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

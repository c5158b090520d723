package sqlite

import (
	"fmt"
	"time"

	"github.com/vertextoedge/map-bootstrap/internal/domain/event"
)

// Ensure Store implements event.HistoryRecorder
var _ event.HistoryRecorder = (*Store)(nil)

// RecordEvent appends a session milestone
func (s *Store) RecordEvent(rec event.HistoryRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO session_events (session_id, event, detail) VALUES (?, ?, ?)`,
		rec.SessionID, rec.Event, rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record event %s: %w", rec.Event, err)
	}
	return nil
}

// ListSessionEvents returns the milestones of a session in insertion order
func (s *Store) ListSessionEvents(sessionID string) ([]event.HistoryRecord, error) {
	rows, err := s.db.Query(`
		SELECT session_id, event, detail
		FROM session_events
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []event.HistoryRecord
	for rows.Next() {
		var rec event.HistoryRecord
		if err := rows.Scan(&rec.SessionID, &rec.Event, &rec.Detail); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountSessions returns the number of distinct sessions recorded
func (s *Store) CountSessions() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(DISTINCT session_id) FROM session_events`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// PruneSessionEvents removes milestones older than olderThan.
// Returns the number of rows deleted.
func (s *Store) PruneSessionEvents(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format("2006-01-02 15:04:05")
	result, err := s.db.Exec(`DELETE FROM session_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune session events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

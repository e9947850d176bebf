package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventStore appends pipeline events (pending_created, pending_approved,
// pending_rejected, action_executed) to the shared event log. Writes are
// off the critical path; callers log failures and continue.
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates an event store over the shared database
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// LogEvent appends one event with its JSON payload
func (s *EventStore) LogEvent(ctx context.Context, eventType string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	query := `
		INSERT INTO event_log (ts, event_type, payload)
		VALUES ($1, $2, $3)`

	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), eventType, encoded); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events of a type, newest first, for
// operator inspection
func (s *EventStore) RecentEvents(ctx context.Context, eventType string, limit int) ([]Event, error) {
	query := `
		SELECT id, ts, event_type, payload
		FROM event_log
		WHERE event_type = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, eventType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.EventType, &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Event is one row of the append-only event log
type Event struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"ts"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// Package events provides the SQL-based implementation of the event ledger
// store.
package events

import (
	"github.com/chosencharacters/Tankmas2024-Server/internal/domain/entities/events"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/database"
)

// EventRepository is the SQL-based store for the collapsed event set.
type EventRepository struct {
	db *database.DB
}

// NewEventRepository creates a new instance of the repository.
func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Upsert writes an event, replacing any current record with the same
// (username, type) pair. The UNIQUE(username, type) constraint enforces the
// collapsing invariant atomically; ordering is restored on read.
func (r *EventRepository) Upsert(ev *events.Event) error {
	const query = `
		INSERT INTO events (id, username, type, data, room_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(username, type) DO UPDATE SET
				id = excluded.id,
				data = excluded.data,
				room_id = excluded.room_id,
				timestamp = excluded.timestamp`

	var data any
	if len(ev.Data) > 0 {
		data = string(ev.Data)
	}

	_, err := r.db.Exec(query, ev.ID, ev.Username, ev.Type, data, ev.RoomID, ev.Timestamp)
	return err
}

// Since returns the current events in roomID newer than after, excluding
// those authored by excludeUsername, in timestamp order.
func (r *EventRepository) Since(roomID int, excludeUsername string, after float64) ([]*events.Event, error) {
	const query = `
		SELECT id, username, type, data, room_id, timestamp
		FROM events
		WHERE room_id = ? AND username != ? AND timestamp > ?
		ORDER BY timestamp ASC`

	rows, err := r.db.Query(query, roomID, excludeUsername, after)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*events.Event
	for rows.Next() {
		var ev events.Event
		var data *string
		if err := rows.Scan(&ev.ID, &ev.Username, &ev.Type, &data, &ev.RoomID, &ev.Timestamp); err != nil {
			return nil, err
		}
		if data != nil {
			ev.Data = []byte(*data)
		}
		result = append(result, &ev)
	}

	return result, rows.Err()
}

// Count returns the size of the current event set across all rooms.
func (r *EventRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}

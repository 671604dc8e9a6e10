// Package presence provides the SQL-based implementations of the room
// presence repositories.
package presence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chosencharacters/Tankmas2024-Server/internal/domain/entities/presence"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/database"
)

// UserRepository is the SQL-based store for per-user presence state.
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new instance of the repository.
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert merges the partial state into the stored record for username,
// reassigning the user to roomID and stamping last_timestamp = now. Fields
// absent from partial keep their stored values. The whole merge is a single
// transaction, so a concurrent sweep sees either the old record or the fully
// merged one. Returns the post-merge state.
func (r *UserRepository) Upsert(username string, roomID int, partial presence.PartialState, now float64) (*presence.UserState, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO users (username, room_id, last_timestamp) VALUES (?, ?, ?)
			ON CONFLICT(username) DO UPDATE SET room_id = excluded.room_id`
	if _, err := tx.Exec(insert, username, roomID, now); err != nil {
		return nil, fmt.Errorf("failed to upsert user row: %w", err)
	}

	setClauses := []string{"last_timestamp = ?"}
	args := []any{now}

	if partial.X != nil {
		setClauses = append(setClauses, "x = ?")
		args = append(args, *partial.X)
	}
	if partial.Y != nil {
		setClauses = append(setClauses, "y = ?")
		args = append(args, *partial.Y)
	}
	if partial.SX != nil {
		setClauses = append(setClauses, "sx = ?")
		args = append(args, *partial.SX)
	}
	if partial.Costume != nil {
		setClauses = append(setClauses, "costume = ?")
		args = append(args, *partial.Costume)
	}
	if partial.Data != nil {
		raw, err := json.Marshal(partial.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode user data: %w", err)
		}
		setClauses = append(setClauses, "data = ?")
		args = append(args, string(raw))
	}

	args = append(args, username)
	update := "UPDATE users SET " + strings.Join(setClauses, ", ") + " WHERE username = ?"
	if _, err := tx.Exec(update, args...); err != nil {
		return nil, fmt.Errorf("failed to merge user state: %w", err)
	}

	const readBack = `
		SELECT username, room_id, x, y, sx, costume, data, last_timestamp
		FROM users
		WHERE username = ?`
	state, err := scanUser(tx.QueryRow(readBack, username))
	if err != nil {
		return nil, fmt.Errorf("failed to read merged state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit upsert: %w", err)
	}

	return state, nil
}

// GetUser retrieves a single user with its room name joined in. Returns
// (nil, nil) when the username is unknown.
func (r *UserRepository) GetUser(username string) (*presence.UserState, error) {
	const query = `
		SELECT u.username, u.room_id, u.x, u.y, u.sx, u.costume, u.data, u.last_timestamp, r.name
		FROM users u
		JOIN rooms r ON r.id = u.room_id
		WHERE u.username = ?`

	row := r.db.QueryRow(query, username)

	var state presence.UserState
	var x, y, sx sql.NullFloat64
	var costume, data sql.NullString
	err := row.Scan(&state.Username, &state.RoomID, &x, &y, &sx, &costume, &data, &state.LastSeen, &state.RoomName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	applyNullable(&state, x, y, sx, costume, data)

	return &state, nil
}

// RoomUsers returns the users of roomID whose last_timestamp is newer than
// cutoff, keyed by username. The cutoff filter bounds the staleness visible
// to readers even when the reaper has not run yet.
func (r *UserRepository) RoomUsers(roomID int, cutoff float64) (map[string]*presence.UserState, error) {
	const query = `
		SELECT username, room_id, x, y, sx, costume, data, last_timestamp
		FROM users
		WHERE room_id = ? AND last_timestamp > ?`

	rows, err := r.db.Query(query, roomID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make(map[string]*presence.UserState)
	for rows.Next() {
		state, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users[state.Username] = state
	}

	return users, rows.Err()
}

// ActiveUsers returns every non-stale user across all rooms, room names
// joined in, ordered by username.
func (r *UserRepository) ActiveUsers(cutoff float64) ([]*presence.UserState, error) {
	const query = `
		SELECT u.username, u.room_id, u.x, u.y, u.sx, u.costume, u.data, u.last_timestamp, r.name
		FROM users u
		JOIN rooms r ON r.id = u.room_id
		WHERE u.last_timestamp > ?
		ORDER BY u.username`

	rows, err := r.db.Query(query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*presence.UserState
	for rows.Next() {
		var state presence.UserState
		var x, y, sx sql.NullFloat64
		var costume, data sql.NullString
		if err := rows.Scan(&state.Username, &state.RoomID, &x, &y, &sx, &costume, &data, &state.LastSeen, &state.RoomName); err != nil {
			return nil, err
		}
		applyNullable(&state, x, y, sx, costume, data)
		users = append(users, &state)
	}

	return users, rows.Err()
}

// Delete removes a user record. Removing an unknown user is a no-op.
func (r *UserRepository) Delete(username string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteIdle removes every user whose last_timestamp is at or before cutoff
// and returns the removed usernames.
func (r *UserRepository) DeleteIdle(cutoff float64) ([]string, error) {
	rows, err := r.db.Query(`DELETE FROM users WHERE last_timestamp <= ? RETURNING username`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var removed []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, err
		}
		removed = append(removed, username)
	}

	return removed, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*presence.UserState, error) {
	var state presence.UserState
	var x, y, sx sql.NullFloat64
	var costume, data sql.NullString

	err := row.Scan(&state.Username, &state.RoomID, &x, &y, &sx, &costume, &data, &state.LastSeen)
	if err != nil {
		return nil, err
	}
	applyNullable(&state, x, y, sx, costume, data)

	return &state, nil
}

func applyNullable(state *presence.UserState, x, y, sx sql.NullFloat64, costume, data sql.NullString) {
	if x.Valid {
		state.X = &x.Float64
	}
	if y.Valid {
		state.Y = &y.Float64
	}
	if sx.Valid {
		state.SX = &sx.Float64
	}
	if costume.Valid {
		state.Costume = &costume.String
	}
	if data.Valid && data.String != "" {
		fields := make(map[string]any)
		if err := json.Unmarshal([]byte(data.String), &fields); err == nil {
			state.Data = fields
		}
	}
}

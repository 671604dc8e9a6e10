// Package saves provides the SQL-based implementation of the per-user save
// blob store.
package saves

import (
	"database/sql"

	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/database"
)

// SaveRepository is the SQL-based store for opaque per-user save blobs.
type SaveRepository struct {
	db *database.DB
}

// NewSaveRepository creates a new instance of the repository.
func NewSaveRepository(db *database.DB) *SaveRepository {
	return &SaveRepository{db: db}
}

// Store upserts the save blob for a user.
func (r *SaveRepository) Store(username, data string) error {
	const query = `
		INSERT INTO saves (username, data, save_time) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(username) DO UPDATE SET data = excluded.data, save_time = CURRENT_TIMESTAMP`

	_, err := r.db.Exec(query, username, data)
	return err
}

// Load returns the stored blob for a user; found is false when the user has
// never saved.
func (r *SaveRepository) Load(username string) (data string, found bool, err error) {
	err = r.db.QueryRow(`SELECT data FROM saves WHERE username = ?`, username).Scan(&data)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return data, true, nil
}

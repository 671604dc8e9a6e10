// Package database provides the core functionality for creating and managing
// database connections in a clean, isolated manner.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// SlowQueryThreshold is the duration after which a query is reported on the
// slow-query channel.
const SlowQueryThreshold = 50 * time.Millisecond

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	driverName string
	dataSource string
}

// NewConnection establishes a new database connection for the specified driver.
func NewConnection(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}

	// SQLite serializes writers; a single connection keeps in-memory
	// databases coherent and avoids SQLITE_BUSY under write contention.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		return nil, err
	}

	return &DB{DB: db, driverName: driverName, dataSource: dataSourceName}, nil
}

// NewConnectionWithLogger establishes a new database connection for the specified driver with logging.
func NewConnectionWithLogger(driverName, dataSourceName string, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	logger.Database().Debug("Creating new database connection", "driverName", driverName)

	db, err := NewConnection(driverName, dataSourceName)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driverName)
		return nil, err
	}

	logger.Database().Info("Database connection established", "driverName", driverName, "duration", time.Since(start))
	return db, nil
}

// EnsureSchema creates the rooms, users, events and saves tables when absent.
func (db *DB) EnsureSchema() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Backup writes a point-in-time copy of the database into dir and returns the
// backup file path. Uses VACUUM INTO so a copy is consistent even while
// writers are active.
func (db *DB) Backup(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := time.Now().Format("2006-01-02-150405") + "-backup.db"
	path := filepath.Join(dir, name)

	if _, err := db.Exec(`VACUUM INTO ?`, path); err != nil {
		return "", fmt.Errorf("failed to back up database: %w", err)
	}

	return path, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         INTEGER PRIMARY KEY,
	identifier TEXT NOT NULL,
	name       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	username       TEXT PRIMARY KEY,
	room_id        INTEGER NOT NULL,
	x              REAL,
	y              REAL,
	sx             REAL,
	costume        TEXT,
	data           TEXT,
	last_timestamp REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_users_room_seen ON users(room_id, last_timestamp);

CREATE TABLE IF NOT EXISTS events (
	id        TEXT PRIMARY KEY,
	username  TEXT NOT NULL,
	type      TEXT NOT NULL,
	data      TEXT,
	room_id   INTEGER NOT NULL,
	timestamp REAL NOT NULL,
	UNIQUE(username, type)
);

CREATE INDEX IF NOT EXISTS idx_events_room_time ON events(room_id, timestamp);

CREATE TABLE IF NOT EXISTS saves (
	username  TEXT PRIMARY KEY,
	data      TEXT NOT NULL,
	save_time TEXT NOT NULL
);
`

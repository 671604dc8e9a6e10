package services

import (
	"log/slog"
	"testing"

	"github.com/chosencharacters/Tankmas2024-Server/internal/domain/entities/presence"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/database"
	presencestore "github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/presence"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	now float64
}

func (c *fakeClock) Now() float64 { return c.now }

func (c *fakeClock) Advance(seconds float64) { c.now += seconds }

func newTestLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToConsole: true,
		DefaultLevel:    slog.LevelError,
		ChannelLevels:   make(map[logging.Channel]slog.Level),
	})
	require.NoError(t, err)
	return logger
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewConnection("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.EnsureSchema())
	return db
}

func newTestRegistry(t *testing.T, db *database.DB) *presencestore.RoomRegistry {
	t.Helper()
	registry := presencestore.NewRoomRegistry([]presence.RoomDef{
		{ID: 1, Name: "Tankmas Village", Identifier: "village", Maps: []string{"village_main"}},
		{ID: 2, Name: "The Lodge", Identifier: "lodge", Maps: []string{"lodge_interior"}},
	})
	require.NoError(t, registry.Sync(db))
	return registry
}

func fptr(v float64) *float64 { return &v }

func sptr(v string) *string { return &v }

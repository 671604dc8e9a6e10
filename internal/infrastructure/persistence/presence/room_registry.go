package presence

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/chosencharacters/Tankmas2024-Server/internal/domain/entities/presence"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/database"
)

// RoomRegistry holds the fixed room set loaded from configuration. It is
// immutable after startup, so lookups need no locking.
type RoomRegistry struct {
	byID map[int]presence.RoomDef
}

// RoomsConfig is the shape of the rooms config file. InitialPlayerState, when
// present, seeds fields of first-seen users that their first report left out.
type RoomsConfig struct {
	Rooms              []presence.RoomDef     `json:"rooms"`
	InitialPlayerState *presence.PartialState `json:"initial_player_data"`
}

// LoadRoomsConfig reads the room definitions from the JSON config file.
func LoadRoomsConfig(path string) (*RoomsConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rooms config: %w", err)
	}

	var cfg RoomsConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse rooms config: %w", err)
	}
	if len(cfg.Rooms) == 0 {
		return nil, fmt.Errorf("rooms config %s defines no rooms", path)
	}

	return &cfg, nil
}

// NewRoomRegistry builds a registry over the given definitions.
func NewRoomRegistry(defs []presence.RoomDef) *RoomRegistry {
	byID := make(map[int]presence.RoomDef, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}
	return &RoomRegistry{byID: byID}
}

// Get returns the definition for a room id.
func (reg *RoomRegistry) Get(roomID int) (presence.RoomDef, bool) {
	def, ok := reg.byID[roomID]
	return def, ok
}

// All returns every room definition ordered by id.
func (reg *RoomRegistry) All() []presence.RoomDef {
	defs := make([]presence.RoomDef, 0, len(reg.byID))
	for _, def := range reg.byID {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// Sync upserts every registered room into the store so user rows always have
// a room to join against.
func (reg *RoomRegistry) Sync(db *database.DB) error {
	const query = `
		INSERT INTO rooms (id, identifier, name) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET identifier = excluded.identifier, name = excluded.name`

	for _, def := range reg.All() {
		if _, err := db.Exec(query, def.ID, def.Identifier, def.Name); err != nil {
			return fmt.Errorf("failed to sync room %d: %w", def.ID, err)
		}
	}
	return nil
}

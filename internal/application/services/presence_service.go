package services

import (
	"fmt"
	"time"

	"github.com/chosencharacters/Tankmas2024-Server/internal/domain/entities/presence"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	presencestore "github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/presence"
)

// PresenceService owns all UserState transitions: join/update merges, room
// reads with the staleness filter, and idle eviction.
type PresenceService struct {
	users          *presencestore.UserRepository
	rooms          *presencestore.RoomRegistry
	locks          *RoomLock
	maxIdleTime    time.Duration
	requiredFields []string
	initialState   *presence.PartialState
	logger         *logging.ChanneledLogger

	now func() float64
}

// NewPresenceService creates the presence manager over the given store and
// registry.
func NewPresenceService(
	users *presencestore.UserRepository,
	rooms *presencestore.RoomRegistry,
	maxIdleTime time.Duration,
	requiredFields []string,
	logger *logging.ChanneledLogger,
) *PresenceService {
	return &PresenceService{
		users:          users,
		rooms:          rooms,
		locks:          NewRoomLock(),
		maxIdleTime:    maxIdleTime,
		requiredFields: requiredFields,
		logger:         logger,
		now:            unixNow,
	}
}

// SetInitialState configures default fields applied to users on their very
// first report.
func (s *PresenceService) SetInitialState(state *presence.PartialState) {
	s.initialState = state
}

// SetNow overrides the service clock. Intended for tests.
func (s *PresenceService) SetNow(now func() float64) {
	s.now = now
}

// UpsertUser merges a partial report into username's stored state, moving the
// user into roomID and stamping last_seen. Returns true when any required
// field is still unset after the merge, signalling the client to resend full
// state.
func (s *PresenceService) UpsertUser(username string, roomID int, partial presence.PartialState) (bool, error) {
	if username == "" {
		return false, validationErrorf("missing username")
	}
	if _, ok := s.rooms.Get(roomID); !ok {
		return false, fmt.Errorf("room %d: %w", roomID, ErrRoomNotFound)
	}

	unlock := s.locks.Lock(roomID)
	defer unlock()

	if s.initialState != nil {
		existing, err := s.users.GetUser(username)
		if err != nil {
			return false, fmt.Errorf("failed to look up user %q: %w", username, err)
		}
		if existing == nil {
			partial = withDefaults(partial, *s.initialState)
		}
	}

	state, err := s.users.Upsert(username, roomID, partial, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to upsert user %q: %w", username, err)
	}

	missing := presence.MissingFields(state, s.requiredFields)
	if len(missing) > 0 {
		s.logger.Presence().Debug("User state incomplete after merge",
			"username", username, "roomId", roomID, "missing", missing)
	}

	return len(missing) > 0, nil
}

// GetRoom returns a room with its live user set. The staleness filter is
// applied at read time, independent of the reaper's sweep cadence.
func (s *PresenceService) GetRoom(roomID int) (*presence.Room, error) {
	def, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, fmt.Errorf("room %d: %w", roomID, ErrRoomNotFound)
	}

	users, err := s.users.RoomUsers(roomID, s.idleCutoff())
	if err != nil {
		return nil, fmt.Errorf("failed to read room %d users: %w", roomID, err)
	}

	return &presence.Room{
		ID:         def.ID,
		Name:       def.Name,
		Identifier: def.Identifier,
		Maps:       def.Maps,
		Users:      users,
	}, nil
}

// GetRoomUsers returns the live users of a room keyed by username.
func (s *PresenceService) GetRoomUsers(roomID int) (map[string]*presence.UserState, error) {
	if _, ok := s.rooms.Get(roomID); !ok {
		return nil, fmt.Errorf("room %d: %w", roomID, ErrRoomNotFound)
	}
	users, err := s.users.RoomUsers(roomID, s.idleCutoff())
	if err != nil {
		return nil, fmt.Errorf("failed to read room %d users: %w", roomID, err)
	}
	return users, nil
}

// GetUser returns a single user's state or nil when the username is unknown.
func (s *PresenceService) GetUser(username string) (*presence.UserState, error) {
	if username == "" {
		return nil, validationErrorf("missing username")
	}
	state, err := s.users.GetUser(username)
	if err != nil {
		return nil, fmt.Errorf("failed to read user %q: %w", username, err)
	}
	return state, nil
}

// ListRooms returns every configured room with its live user set.
func (s *PresenceService) ListRooms() ([]*presence.Room, error) {
	defs := s.rooms.All()
	rooms := make([]*presence.Room, 0, len(defs))
	for _, def := range defs {
		room, err := s.GetRoom(def.ID)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// ListUsers returns every live user across all rooms.
func (s *PresenceService) ListUsers() ([]*presence.UserState, error) {
	users, err := s.users.ActiveUsers(s.idleCutoff())
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// RemoveUser deletes a user's presence record. Removing an unknown user is a
// no-op and reports false.
func (s *PresenceService) RemoveUser(username string) (bool, error) {
	if username == "" {
		return false, validationErrorf("missing username")
	}
	removed, err := s.users.Delete(username)
	if err != nil {
		return false, fmt.Errorf("failed to remove user %q: %w", username, err)
	}
	if removed {
		s.logger.Presence().Info("User removed", "username", username)
	}
	return removed, nil
}

// ReapIdle evicts every user idle for at least the max idle time and returns
// the evicted usernames. Safe to run concurrently with upserts; the delete is
// a single atomic statement.
func (s *PresenceService) ReapIdle() ([]string, error) {
	removed, err := s.users.DeleteIdle(s.idleCutoff())
	if err != nil {
		return nil, fmt.Errorf("failed to reap idle users: %w", err)
	}
	if len(removed) > 0 {
		s.logger.Presence().Info("Reaped idle users", "count", len(removed), "usernames", removed)
	}
	return removed, nil
}

// idleCutoff is the last_seen bound separating live users from stale ones.
func (s *PresenceService) idleCutoff() float64 {
	return s.now() - s.maxIdleTime.Seconds()
}

func unixNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// withDefaults fills fields the first report left out from the configured
// initial state.
func withDefaults(partial, defaults presence.PartialState) presence.PartialState {
	if partial.X == nil {
		partial.X = defaults.X
	}
	if partial.Y == nil {
		partial.Y = defaults.Y
	}
	if partial.SX == nil {
		partial.SX = defaults.SX
	}
	if partial.Costume == nil {
		partial.Costume = defaults.Costume
	}
	if partial.Data == nil {
		partial.Data = defaults.Data
	}
	return partial
}

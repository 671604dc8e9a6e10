package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chosencharacters/Tankmas2024-Server/internal/domain/entities/events"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/feed"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	eventstore "github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/events"
	presencestore "github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/presence"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/security"
)

// cursorKey scopes delivery cursors per (username, room). A user polling two
// rooms keeps an independent watermark in each.
type cursorKey struct {
	username string
	roomID   int
}

// EventService owns the collapsed event set and the delivery cursors.
type EventService struct {
	repo   *eventstore.EventRepository
	rooms  *presencestore.RoomRegistry
	feed   *feed.Hub
	logger *logging.ChanneledLogger

	mu      sync.Mutex
	cursors map[cursorKey]float64

	now func() float64
}

// NewEventService creates the event ledger. The feed hub is optional; when
// nil, posted events are only available through polling.
func NewEventService(
	repo *eventstore.EventRepository,
	rooms *presencestore.RoomRegistry,
	feedHub *feed.Hub,
	logger *logging.ChanneledLogger,
) *EventService {
	return &EventService{
		repo:    repo,
		rooms:   rooms,
		feed:    feedHub,
		logger:  logger,
		cursors: make(map[cursorKey]float64),
		now:     unixNow,
	}
}

// SetNow overrides the service clock. Intended for tests.
func (s *EventService) SetNow(now func() float64) {
	s.now = now
}

// PostEvent appends an event, collapsing against any current record with the
// same (username, type) pair. The payload is opaque; only username, type and
// timestamp are structurally meaningful here.
func (s *EventService) PostEvent(username, eventType string, data json.RawMessage, roomID int) (*events.Event, error) {
	if username == "" {
		return nil, validationErrorf("missing username")
	}
	if eventType == "" {
		return nil, validationErrorf("missing event type")
	}
	if _, ok := s.rooms.Get(roomID); !ok {
		return nil, fmt.Errorf("room %d: %w", roomID, ErrRoomNotFound)
	}

	ev := &events.Event{
		ID:        security.GenerateULID(),
		Username:  username,
		Type:      eventType,
		RoomID:    roomID,
		Timestamp: s.now(),
		Data:      data,
	}

	if err := s.repo.Upsert(ev); err != nil {
		return nil, fmt.Errorf("failed to store event: %w", err)
	}

	s.logger.Events().Debug("Event posted",
		"username", username, "type", eventType, "roomId", roomID)

	if s.feed != nil {
		s.feed.PublishEvent(ev)
	}

	return ev, nil
}

// EventsSince returns the current events in roomID that arrived after the
// caller's last poll, never including the caller's own events. A first-ever
// poll starts the cursor at now, so pre-existing events are not flooded back.
// The cursor advances to now even when the selection is empty, but only after
// the select succeeds; a store failure leaves the watermark where it was so
// undelivered events are retried on the next poll.
func (s *EventService) EventsSince(username string, roomID int) ([]*events.Event, error) {
	if username == "" {
		return nil, validationErrorf("missing username")
	}
	if _, ok := s.rooms.Get(roomID); !ok {
		return nil, fmt.Errorf("room %d: %w", roomID, ErrRoomNotFound)
	}

	now := s.now()
	key := cursorKey{username: username, roomID: roomID}

	s.mu.Lock()
	effective := now
	if cursor, ok := s.cursors[key]; ok && cursor > 0 {
		effective = cursor
	}
	s.mu.Unlock()

	selected, err := s.repo.Since(roomID, username, effective)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	if selected == nil {
		selected = []*events.Event{}
	}

	s.mu.Lock()
	s.cursors[key] = now
	s.mu.Unlock()

	return selected, nil
}

// DropCursors forgets the delivery cursors of a user, e.g. after a kick.
func (s *EventService) DropCursors(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.cursors {
		if key.username == username {
			delete(s.cursors, key)
		}
	}
}

// CurrentEventCount reports the size of the collapsed event set.
func (s *EventService) CurrentEventCount() (int, error) {
	return s.repo.Count()
}

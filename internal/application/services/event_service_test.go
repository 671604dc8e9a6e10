package services

import (
	"encoding/json"
	"testing"

	eventstore "github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventFixture(t *testing.T) (*EventService, *fakeClock) {
	t.Helper()
	db := newTestDB(t)
	registry := newTestRegistry(t, db)

	svc := NewEventService(eventstore.NewEventRepository(db), registry, nil, newTestLogger(t))

	clock := &fakeClock{now: 1000}
	svc.SetNow(clock.Now)
	return svc, clock
}

func TestPostEventCollapsesPerUserAndType(t *testing.T) {
	svc, clock := newEventFixture(t)

	first, err := svc.PostEvent("paco", "sticker", json.RawMessage(`{"sticker":"pico"}`), 1)
	require.NoError(t, err)

	clock.Advance(1)
	second, err := svc.PostEvent("paco", "sticker", json.RawMessage(`{"sticker":"darnell"}`), 1)
	require.NoError(t, err)

	count, err := svc.CurrentEventCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "a repost replaces the previous (user, type) record")
	assert.NotEqual(t, first.ID, second.ID)

	clock.Advance(1)
	_, err = svc.PostEvent("paco", "emote", json.RawMessage(`{"emote":"wave"}`), 1)
	require.NoError(t, err)

	count, err = svc.CurrentEventCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count, "a different type is its own record")
}

func TestPostEventValidation(t *testing.T) {
	svc, _ := newEventFixture(t)

	_, err := svc.PostEvent("", "sticker", nil, 1)
	assert.True(t, IsValidation(err))

	_, err = svc.PostEvent("paco", "", nil, 1)
	assert.True(t, IsValidation(err))

	_, err = svc.PostEvent("paco", "sticker", nil, 99)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestEventsSinceFirstPollIsEmpty(t *testing.T) {
	svc, clock := newEventFixture(t)

	_, err := svc.PostEvent("paco", "sticker", json.RawMessage(`{}`), 1)
	require.NoError(t, err)

	clock.Advance(1)
	got, err := svc.EventsSince("darnell", 1)
	require.NoError(t, err)
	assert.Empty(t, got, "a first poll is a cursor prime, not a replay of history")
	assert.NotNil(t, got)
}

func TestEventsSinceDeliversOnceThenGoesQuiet(t *testing.T) {
	svc, clock := newEventFixture(t)

	// Prime darnell's cursor.
	_, err := svc.EventsSince("darnell", 1)
	require.NoError(t, err)

	clock.Advance(1)
	posted, err := svc.PostEvent("paco", "sticker", json.RawMessage(`{"sticker":"pico"}`), 1)
	require.NoError(t, err)

	clock.Advance(1)
	got, err := svc.EventsSince("darnell", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, posted.ID, got[0].ID)
	assert.Equal(t, "paco", got[0].Username)
	assert.Equal(t, "sticker", got[0].Type)

	clock.Advance(1)
	got, err = svc.EventsSince("darnell", 1)
	require.NoError(t, err)
	assert.Empty(t, got, "a delivered event is not delivered twice")
}

func TestEventsSinceExcludesOwnEvents(t *testing.T) {
	svc, clock := newEventFixture(t)

	_, err := svc.EventsSince("paco", 1)
	require.NoError(t, err)

	clock.Advance(1)
	_, err = svc.PostEvent("paco", "sticker", json.RawMessage(`{}`), 1)
	require.NoError(t, err)

	clock.Advance(1)
	got, err := svc.EventsSince("paco", 1)
	require.NoError(t, err)
	assert.Empty(t, got, "a user never receives their own events back")
}

func TestEventsSinceCursorsAreScopedPerRoom(t *testing.T) {
	svc, clock := newEventFixture(t)

	_, err := svc.EventsSince("darnell", 1)
	require.NoError(t, err)

	clock.Advance(1)
	_, err = svc.PostEvent("paco", "sticker", json.RawMessage(`{}`), 1)
	require.NoError(t, err)

	// A first poll of room 2 primes its own cursor and sees nothing,
	// while room 1 still owes darnell the event.
	clock.Advance(1)
	got, err := svc.EventsSince("darnell", 2)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.EventsSince("darnell", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDropCursorsResetsDelivery(t *testing.T) {
	svc, clock := newEventFixture(t)

	_, err := svc.EventsSince("darnell", 1)
	require.NoError(t, err)

	clock.Advance(1)
	_, err = svc.PostEvent("paco", "sticker", json.RawMessage(`{}`), 1)
	require.NoError(t, err)

	svc.DropCursors("darnell")

	clock.Advance(1)
	got, err := svc.EventsSince("darnell", 1)
	require.NoError(t, err)
	assert.Empty(t, got, "after a cursor drop the next poll behaves like a first poll")
}

func TestEventsSinceKeepsCursorOnStoreError(t *testing.T) {
	db := newTestDB(t)
	registry := newTestRegistry(t, db)
	svc := NewEventService(eventstore.NewEventRepository(db), registry, nil, newTestLogger(t))
	clock := &fakeClock{now: 1000}
	svc.SetNow(clock.Now)

	_, err := svc.EventsSince("darnell", 1)
	require.NoError(t, err)

	clock.Advance(1)
	_, err = svc.PostEvent("paco", "sticker", json.RawMessage(`{}`), 1)
	require.NoError(t, err)

	require.NoError(t, db.Close())

	clock.Advance(1)
	_, err = svc.EventsSince("darnell", 1)
	require.Error(t, err)

	// The watermark stays put, so the undelivered event is still owed.
	svc.mu.Lock()
	cursor := svc.cursors[cursorKey{username: "darnell", roomID: 1}]
	svc.mu.Unlock()
	assert.Equal(t, 1000.0, cursor, "a failed select must not move the watermark")
}

func TestEventsSinceUnknownRoom(t *testing.T) {
	svc, _ := newEventFixture(t)

	_, err := svc.EventsSince("darnell", 99)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

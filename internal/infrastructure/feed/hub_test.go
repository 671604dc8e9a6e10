package feed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/chosencharacters/Tankmas2024-Server/internal/domain/entities/events"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedFixture(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToConsole: true,
		DefaultLevel:    slog.LevelError,
		ChannelLevels:   make(map[logging.Channel]slog.Level),
	})
	require.NoError(t, err)

	hub := NewHub(logger)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		roomID, _ := strconv.Atoi(r.URL.Query().Get("room"))
		hub.Serve(w, r, roomID)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dialFeed(t *testing.T, srv *httptest.Server, roomID int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?room=" + strconv.Itoa(roomID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishEventReachesRoomSubscriber(t *testing.T) {
	hub, srv := newFeedFixture(t)
	conn := dialFeed(t, srv, 1)
	waitForClients(t, hub, 1)

	hub.PublishEvent(&events.Event{
		ID:       "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Username: "paco",
		Type:     "sticker",
		RoomID:   1,
	})

	msg := readMessage(t, conn)
	assert.Equal(t, "event", msg.Type)
	ev := msg.Data.(map[string]any)
	assert.Equal(t, "paco", ev["username"])
	assert.Equal(t, "sticker", ev["type"])
}

func TestPublishEventSkipsOtherRooms(t *testing.T) {
	hub, srv := newFeedFixture(t)
	lodge := dialFeed(t, srv, 2)
	all := dialFeed(t, srv, 0)
	waitForClients(t, hub, 2)

	hub.PublishEvent(&events.Event{ID: "x", Username: "paco", Type: "sticker", RoomID: 1})

	// The all-rooms subscriber gets it.
	msg := readMessage(t, all)
	assert.Equal(t, "event", msg.Type)

	// The lodge subscriber does not.
	lodge.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := lodge.ReadMessage()
	assert.Error(t, err, "no frame should arrive for another room")
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub, srv := newFeedFixture(t)
	village := dialFeed(t, srv, 1)
	lodge := dialFeed(t, srv, 2)
	waitForClients(t, hub, 2)

	hub.Broadcast(events.Notification{Text: "Server restarting soon", Persistent: true})

	for _, conn := range []*websocket.Conn{village, lodge} {
		msg := readMessage(t, conn)
		assert.Equal(t, "notification", msg.Type)
		n := msg.Data.(map[string]any)
		assert.Equal(t, "Server restarting soon", n["text"])
		assert.Equal(t, true, n["persistent"])
	}
}

func TestDisconnectRemovesClient(t *testing.T) {
	hub, srv := newFeedFixture(t)
	conn := dialFeed(t, srv, 1)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

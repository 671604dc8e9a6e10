// Package feed pushes newly posted events and server notifications to
// connected websocket observers. The polling surface stays the system of
// record; the feed is best-effort and slow consumers are dropped.
package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/chosencharacters/Tankmas2024-Server/internal/domain/entities/events"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the wire envelope pushed to feed clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub owns the set of connected feed clients.
type Hub struct {
	logger *logging.ChanneledLogger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	roomID int // 0 subscribes to every room
}

// NewHub creates an empty feed hub.
func NewHub(logger *logging.ChanneledLogger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// ClientCount returns the number of connected feed clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishEvent pushes a freshly posted event to clients subscribed to its
// room.
func (h *Hub) PublishEvent(ev *events.Event) {
	payload, err := json.Marshal(Message{Type: "event", Data: ev})
	if err != nil {
		return
	}
	h.push(payload, ev.RoomID)
}

// Broadcast pushes a server notification to every connected client.
func (h *Hub) Broadcast(n events.Notification) {
	payload, err := json.Marshal(Message{Type: "notification", Data: n})
	if err != nil {
		return
	}
	h.push(payload, 0)
}

func (h *Hub) push(payload []byte, roomID int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if roomID != 0 && c.roomID != 0 && c.roomID != roomID {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// Slow consumer; closing the channel is handled on removal.
		}
	}
}

// Serve upgrades the request and registers the connection until it closes.
// roomID 0 subscribes to all rooms.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, roomID int) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		roomID: roomID,
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Feed().Info("Feed client connected", "roomId", roomID, "clients", total)

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()

	if present {
		c.conn.Close()
		h.logger.Feed().Info("Feed client disconnected", "roomId", c.roomID, "clients", total)
	}
}

// readPump discards client frames; it exists to notice disconnects and
// answer pings.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.remove(c)
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

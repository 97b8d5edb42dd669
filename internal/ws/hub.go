package ws

import (
	"sync"

	"lingochat/internal/domain"
	"lingochat/internal/metrics"
)

// Event is the envelope pushed to clients over the websocket.
type Event struct {
	Type     string          `json:"type"`
	Message  *domain.Message `json:"message,omitempty"`
	UserID   int64           `json:"userId,omitempty"`
	Username string          `json:"username,omitempty"`
}

// wsConn is the subset of *websocket.Conn the hub writes through.
type wsConn interface {
	WriteJSON(v any) error
	Close() error
}

// Client serializes writes to one websocket connection. Pushes originate
// from arbitrary handler goroutines, and gorilla/websocket allows at most
// one concurrent writer per connection.
type Client struct {
	mu sync.Mutex
	ws wsConn
}

func (c *Client) write(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(ev)
}

// Hub manages active WebSocket connections keyed by user ID and provides
// helper methods to push events to one or more users.
type Hub struct {
	mu    sync.RWMutex
	conns map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[int64]map[*Client]struct{}),
	}
}

// Register adds a connection for the given user and returns the handle used
// to write to it and to unregister it.
func (h *Hub) Register(userID int64, conn wsConn) *Client {
	c := &Client{ws: conn}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*Client]struct{})
	}
	h.conns[userID][c] = struct{}{}
	return c
}

// Unregister removes a connection for the given user.
func (h *Hub) Unregister(userID int64, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.conns[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.conns, userID)
		}
	}
}

// PushMessage delivers a newMessage event to both conversation participants.
// The sender receives the same pushed copy as the receiver; clients dedup by
// message ID against their confirmed record.
func (h *Hub) PushMessage(m *domain.Message) {
	h.SendToUsers([]int64{m.SenderID, m.ReceiverID}, Event{
		Type:    "newMessage",
		Message: m,
	})
}

// SendToUsers sends the given event to all active connections of the
// provided user IDs. Connections that fail are closed.
func (h *Hub) SendToUsers(userIDs []int64, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, uid := range userIDs {
		conns, ok := h.conns[uid]
		if !ok {
			continue
		}
		for c := range conns {
			if err := c.write(ev); err != nil {
				c.ws.Close()
				// actual removal is best-effort; a stale conn may linger
				continue
			}
			metrics.PushDeliveries.Inc()
		}
	}
}

// Broadcast sends the event to every connected user.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.conns {
		for c := range conns {
			if err := c.write(ev); err != nil {
				c.ws.Close()
			}
		}
	}
}

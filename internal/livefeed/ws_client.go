package livefeed

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"civicdesk/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// subscription is the only message a client sends: the complaint to follow.
// An empty ComplaintID means every complaint.
type subscription struct {
	ComplaintID string `json:"complaintId"`
}

// WebSocketClient реалізує інтерфейс livefeed.Client
type WebSocketClient struct {
	id   string
	Conn *websocket.Conn
	Hub  *Hub
	Send chan models.ComplaintEvent

	mu     sync.RWMutex
	follow string
	once   sync.Once
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, complaintID string) *WebSocketClient {
	return &WebSocketClient{
		id:     uuid.New().String(),
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan models.ComplaintEvent, 64),
		follow: complaintID,
	}
}

func (c *WebSocketClient) ID() string                                { return c.id }
func (c *WebSocketClient) SendChannel() chan<- models.ComplaintEvent { return c.Send }

func (c *WebSocketClient) Wants(ev models.ComplaintEvent) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.follow == "" || c.follow == ev.ComplaintID
}

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close закриває Send канал (що зупинить writePump)
func (c *WebSocketClient) Close() {
	c.once.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("live feed read failed", "client_id", c.id, "err", err)
			}
			return
		}

		var sub subscription
		if err := json.Unmarshal(message, &sub); err != nil {
			slog.Debug("ignoring bad live feed message", "client_id", c.id, "err", err)
			continue
		}
		c.mu.Lock()
		c.follow = sub.ComplaintID
		c.mu.Unlock()
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

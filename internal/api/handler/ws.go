package handler

import (
	"log/slog"
	"net/http"

	"civicdesk/backend/internal/api/resp"
	"civicdesk/backend/internal/livefeed"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin перевіряє CORS на HTTP-рівні; фід лише для читання
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeLiveFeed оновлює HTTP-з'єднання до WebSocket. ?complaintId= follows
// a single complaint.
func (h *Handler) ServeLiveFeed(c *gin.Context) {
	if h.Hub == nil {
		resp.Error(c, http.StatusServiceUnavailable, "live feed is disabled")
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := livefeed.NewWebSocketClient(h.Hub, conn, c.Query("complaintId"))
	if !h.Hub.Register(client) {
		_ = conn.Close()
		return
	}
	client.Run()
}

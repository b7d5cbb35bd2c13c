package handler

import (
	"context"
	"net/http"
	"time"

	"civicdesk/backend/internal/api/resp"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Health(c *gin.Context) {
	resp.OK(c, gin.H{"status": "ok", "time": time.Now().UTC()})
}

// Ready reports 503 while the store is unreachable.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Storage.Ping(ctx); err != nil {
		resp.Error(c, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	resp.OK(c, gin.H{"status": "ready"})
}

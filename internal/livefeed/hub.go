// Package livefeed pushes complaint events to websocket dashboards.
package livefeed

import (
	"context"
	"log/slog"

	"civicdesk/backend/internal/metrics"
	"civicdesk/backend/internal/models"
)

// Hub owns the set of connected clients. All map access happens on the Run
// goroutine.
type Hub struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	BroadcastCh  chan models.ComplaintEvent

	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		BroadcastCh:  make(chan models.ComplaintEvent, 256),
		done:         make(chan struct{}),
	}
}

// Run dispatches until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for id, c := range h.Clients {
			delete(h.Clients, id)
			c.Close()
		}
		metrics.LiveClients.Set(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.RegisterCh:
			h.Clients[c.ID()] = c
			metrics.LiveClients.Set(float64(len(h.Clients)))
			slog.Debug("live feed client registered", "client_id", c.ID())

		case c := <-h.UnregisterCh:
			h.drop(c)

		case ev := <-h.BroadcastCh:
			for _, c := range h.Clients {
				if !c.Wants(ev) {
					continue
				}
				select {
				case c.SendChannel() <- ev:
				default:
					// повільний клієнт: відключаємо, щоб не блокувати хаб
					slog.Warn("live feed client too slow, dropping", "client_id", c.ID())
					h.drop(c)
				}
			}
		}
	}
}

// Register adds c. It reports false when the hub has stopped.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c unless the hub already stopped.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

func (h *Hub) drop(c Client) {
	if _, ok := h.Clients[c.ID()]; !ok {
		return
	}
	delete(h.Clients, c.ID())
	c.Close()
	metrics.LiveClients.Set(float64(len(h.Clients)))
}

// Publish queues ev for broadcast; it lets the hub act as an in-process
// event sink when Redis is not configured.
func (h *Hub) Publish(ctx context.Context, ev models.ComplaintEvent) error {
	select {
	case h.BroadcastCh <- ev:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Close() error { return nil }

// Consume forwards events from a subscription (e.g. Redis) until it ends.
func (h *Hub) Consume(ctx context.Context, in <-chan models.ComplaintEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			if err := h.Publish(ctx, ev); err != nil {
				return
			}
		}
	}
}

package livefeed

import "civicdesk/backend/internal/models"

// Client is one live feed subscriber.
type Client interface {
	// ID identifies the connection inside the hub.
	ID() string
	// Wants reports whether the client follows the event's complaint.
	Wants(ev models.ComplaintEvent) bool
	// SendChannel is where the hub pushes events for this client.
	SendChannel() chan<- models.ComplaintEvent
	// Run starts the client's pumps.
	Run()
	// Close releases the client after the hub dropped it.
	Close()
}

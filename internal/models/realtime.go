package models

import "time"

type EventType string

const (
	EventComplaintCreated   EventType = "complaint.created"
	EventComplaintStatus    EventType = "complaint.status_changed"
	EventComplaintAssigned  EventType = "complaint.assigned"
	EventComplaintCommented EventType = "complaint.commented"
	EventComplaintUpvoted   EventType = "complaint.upvoted"
)

// ComplaintEvent is broadcast to the live feed, Redis and Kafka after every
// complaint write.
type ComplaintEvent struct {
	Type        EventType `json:"type"`
	ComplaintID string    `json:"complaintId"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Status      Status    `json:"status"`
	PrevStatus  Status    `json:"prevStatus,omitempty"`
	ActorID     string    `json:"actorId"`
	Note        string    `json:"note,omitempty"`
	At          time.Time `json:"at"`
}

// NewComplaintEvent builds an event snapshot of c.
func NewComplaintEvent(t EventType, c *Complaint, actorID string, at time.Time) ComplaintEvent {
	return ComplaintEvent{
		Type:        t,
		ComplaintID: c.ID,
		Title:       c.Title,
		Category:    c.Category,
		Status:      c.Status,
		ActorID:     actorID,
		At:          at,
	}
}

// Package events fans complaint events out to Redis Pub/Sub, Kafka and
// in-process listeners. Publishing is best-effort: a failing sink is logged
// and never fails the write that produced the event.
package events

import (
	"context"
	"errors"
	"log/slog"

	"civicdesk/backend/internal/metrics"
	"civicdesk/backend/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, ev models.ComplaintEvent) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, models.ComplaintEvent) error { return nil }
func (Nop) Close() error                                         { return nil }

// Func adapts a function to Publisher.
type Func func(ctx context.Context, ev models.ComplaintEvent) error

func (f Func) Publish(ctx context.Context, ev models.ComplaintEvent) error { return f(ctx, ev) }
func (f Func) Close() error                                                { return nil }

type sink struct {
	name string
	pub  Publisher
}

// Multi delivers each event to every sink in order.
type Multi struct {
	sinks []sink
}

func NewMulti() *Multi {
	return &Multi{}
}

// Add registers a named sink. Nil publishers are ignored.
func (m *Multi) Add(name string, p Publisher) *Multi {
	if p != nil {
		m.sinks = append(m.sinks, sink{name: name, pub: p})
	}
	return m
}

func (m *Multi) Len() int { return len(m.sinks) }

// Publish returns the joined sink errors; callers usually only log them.
func (m *Multi) Publish(ctx context.Context, ev models.ComplaintEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.pub.Publish(ctx, ev); err != nil {
			metrics.EventsPublished.WithLabelValues(s.name, "error").Inc()
			slog.Warn("publish complaint event failed",
				"sink", s.name, "type", ev.Type, "complaint_id", ev.ComplaintID, "err", err)
			errs = append(errs, err)
			continue
		}
		metrics.EventsPublished.WithLabelValues(s.name, "ok").Inc()
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.pub.Close())
	}
	return errors.Join(errs...)
}

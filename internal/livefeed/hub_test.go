package livefeed_test

import (
	"context"
	"testing"
	"time"

	"civicdesk/backend/internal/livefeed"
	"civicdesk/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	id          string
	follow      string
	RecvChannel chan models.ComplaintEvent
	closed      chan struct{}
}

func newMockClient(id, follow string, buf int) *mockClient {
	return &mockClient{
		id:          id,
		follow:      follow,
		RecvChannel: make(chan models.ComplaintEvent, buf),
		closed:      make(chan struct{}),
	}
}

func (c *mockClient) ID() string { return c.id }
func (c *mockClient) Wants(ev models.ComplaintEvent) bool {
	return c.follow == "" || c.follow == ev.ComplaintID
}
func (c *mockClient) SendChannel() chan<- models.ComplaintEvent { return c.RecvChannel }
func (c *mockClient) Run()                                      {}
func (c *mockClient) Close()                                    { close(c.closed) }

func receive(t *testing.T, c *mockClient) models.ComplaintEvent {
	t.Helper()
	select {
	case ev := <-c.RecvChannel:
		return ev
	case <-time.After(time.Second):
		t.Fatalf("client %s did not receive an event", c.id)
		return models.ComplaintEvent{}
	}
}

func TestHub_BroadcastRespectsFilter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := livefeed.NewHub()
	go hub.Run(ctx)

	all := newMockClient("all", "", 4)
	one := newMockClient("one", "c-2", 4)
	hub.RegisterCh <- all
	hub.RegisterCh <- one

	require.NoError(t, hub.Publish(ctx, models.ComplaintEvent{Type: models.EventComplaintCreated, ComplaintID: "c-1"}))
	require.NoError(t, hub.Publish(ctx, models.ComplaintEvent{Type: models.EventComplaintUpvoted, ComplaintID: "c-2"}))

	assert.Equal(t, "c-1", receive(t, all).ComplaintID)
	assert.Equal(t, "c-2", receive(t, all).ComplaintID)
	assert.Equal(t, "c-2", receive(t, one).ComplaintID)

	select {
	case ev := <-one.RecvChannel:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestHub_UnregisterAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := livefeed.NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	a := newMockClient("a", "", 1)
	b := newMockClient("b", "", 1)
	hub.RegisterCh <- a
	hub.RegisterCh <- b

	hub.Unregister(a)
	select {
	case <-a.closed:
	case <-time.After(time.Second):
		t.Fatal("client a was not closed")
	}

	cancel()
	<-stopped
	select {
	case <-b.closed:
	default:
		t.Fatal("client b was not closed on shutdown")
	}

	// after shutdown these return instead of blocking
	hub.Unregister(b)
	assert.NoError(t, hub.Publish(context.Background(), models.ComplaintEvent{}))
}

func TestHub_DropsSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := livefeed.NewHub()
	go hub.Run(ctx)

	slow := newMockClient("slow", "", 0)
	hub.RegisterCh <- slow
	require.NoError(t, hub.Publish(ctx, models.ComplaintEvent{ComplaintID: "c-1"}))

	select {
	case <-slow.closed:
	case <-time.After(time.Second):
		t.Fatal("slow client was not dropped")
	}
}

func TestHub_Consume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := livefeed.NewHub()
	go hub.Run(ctx)

	c := newMockClient("c", "", 2)
	hub.RegisterCh <- c

	in := make(chan models.ComplaintEvent, 1)
	in <- models.ComplaintEvent{ComplaintID: "from-redis"}
	close(in)
	hub.Consume(ctx, in)

	assert.Equal(t, "from-redis", receive(t, c).ComplaintID)
}

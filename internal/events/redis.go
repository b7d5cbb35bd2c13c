package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"civicdesk/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "complaints:events"

// RedisPublisher публікує події скарг в Redis Pub/Sub.
type RedisPublisher struct {
	Redis   *redis.Client
	Channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{Redis: rdb, Channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev models.ComplaintEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.Redis.Publish(ctx, p.Channel, body).Err()
}

// Close leaves the shared client open; its owner closes it.
func (p *RedisPublisher) Close() error { return nil }

// Subscribe decodes events from the channel until ctx is done. The returned
// channel is closed when the subscription ends.
func (p *RedisPublisher) Subscribe(ctx context.Context) <-chan models.ComplaintEvent {
	out := make(chan models.ComplaintEvent, 64)
	pubsub := p.Redis.Subscribe(ctx, p.Channel)

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := DecodeEvent([]byte(msg.Payload))
				if err != nil {
					slog.Warn("bad complaint event on redis channel", "channel", msg.Channel, "err", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func DecodeEvent(data []byte) (models.ComplaintEvent, error) {
	var ev models.ComplaintEvent
	err := json.Unmarshal(data, &ev)
	return ev, err
}

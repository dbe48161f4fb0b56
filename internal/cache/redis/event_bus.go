package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// eventsChannel is the Pub/Sub channel all committed events fan out on.
const eventsChannel = "events"

// EventBus implements domain.EventBus using Redis Pub/Sub with JSON-encoded
// event envelopes. Delivery is at-most-once; the durable event log in the
// store is the source of truth.
type EventBus struct {
	rdb *redis.Client
}

// NewEventBus creates an EventBus backed by the given Client.
func NewEventBus(c *Client) *EventBus {
	return &EventBus{rdb: c.Underlying()}
}

// Publish sends an event to the shared channel.
func (b *EventBus) Publish(ctx context.Context, e domain.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis: marshal event %s: %w", e.ID, err)
	}
	if err := b.rdb.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish event %s: %w", e.ID, err)
	}
	return nil
}

// Subscribe returns a channel of decoded events. The subscription closes when
// the context is cancelled; undecodable payloads are skipped.
func (b *EventBus) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	pubsub := b.rdb.Subscribe(ctx, eventsChannel)

	// Receive the subscription confirmation before handing out the channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", eventsChannel, err)
	}

	out := make(chan domain.Event, 128)
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
				var e domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Compile-time interface check.
var _ domain.EventBus = (*EventBus)(nil)

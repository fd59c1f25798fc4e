// Package bus implements the synchronous event bus that fans state changes
// and application events out to subscribers. Delivery is in-process and
// in registration order on the publisher's goroutine; a panicking handler is
// recovered and reported without suppressing delivery to later handlers.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammywammy/oslira-core/observability"
)

// Handler receives events published to a subscribed topic.
type Handler func(ctx context.Context, topic string, data any)

// Subscription identifies a single handler registration. Zero value is not a
// valid subscription.
type Subscription struct {
	id    string
	topic string
}

// Topic returns the topic the subscription is registered on.
func (s Subscription) Topic() string { return s.topic }

type entry struct {
	id      string
	handler Handler
}

// Bus is a topic-keyed publish/subscribe bus. Safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	subs     map[string][]entry
	observer observability.Observer
}

// Option configures a Bus.
type Option func(*Bus)

// WithObserver sets the observer for bus events.
func WithObserver(obs observability.Observer) Option {
	return func(b *Bus) { b.observer = observability.Normalize(obs) }
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:     make(map[string][]entry),
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for a topic. Handlers on the same topic are
// invoked in registration order. Duplicate registrations of the same handler
// are independent subscriptions.
func (b *Bus) Subscribe(topic string, handler Handler) Subscription {
	sub := Subscription{
		id:    uuid.NewString(),
		topic: topic,
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], entry{id: sub.id, handler: handler})
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes exactly the given registration. Returns false if the
// subscription is unknown (already removed or never issued).
func (b *Bus) Unsubscribe(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.subs[sub.topic]
	for i, e := range entries {
		if e.id == sub.id {
			b.subs[sub.topic] = append(entries[:i:i], entries[i+1:]...)
			if len(b.subs[sub.topic]) == 0 {
				delete(b.subs, sub.topic)
			}
			return true
		}
	}
	return false
}

// Publish delivers data to every handler subscribed to topic, synchronously
// and in registration order. The subscriber list is snapshotted before
// dispatch, so handlers that subscribe or unsubscribe during delivery do not
// affect the in-flight iteration.
func (b *Bus) Publish(ctx context.Context, topic string, data any) {
	b.mu.RLock()
	entries := make([]entry, len(b.subs[topic]))
	copy(entries, b.subs[topic])
	b.mu.RUnlock()

	for _, e := range entries {
		b.dispatch(ctx, topic, data, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, topic string, data any, e entry) {
	defer func() {
		if r := recover(); r != nil {
			b.observer.OnEvent(ctx, observability.Event{
				Type:   EventHandlerPanic,
				Level:  observability.LevelError,
				Time:   time.Now(),
				Source: "bus",
				Data: map[string]any{
					"topic":        topic,
					"subscription": e.id,
					"panic":        r,
				},
			})
		}
	}()

	e.handler(ctx, topic, data)
}

// SubscriberCount returns the number of handlers registered on topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

package observability

import (
	"context"
	"sync"
)

// CaptureObserver records every event it receives. Intended for tests that
// assert on emitted events. Safe for concurrent use.
type CaptureObserver struct {
	mu     sync.Mutex
	events []Event
}

// NewCaptureObserver creates an empty CaptureObserver.
func NewCaptureObserver() *CaptureObserver {
	return &CaptureObserver{}
}

func (c *CaptureObserver) OnEvent(ctx context.Context, event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

// Events returns a copy of all recorded events in emission order.
func (c *CaptureObserver) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := make([]Event, len(c.events))
	copy(copied, c.events)
	return copied
}

// ByType returns all recorded events matching the given type.
func (c *CaptureObserver) ByType(t EventType) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []Event
	for _, e := range c.events {
		if e.Type == t {
			matched = append(matched, e)
		}
	}
	return matched
}

// Has reports whether at least one event of the given type was recorded.
func (c *CaptureObserver) Has(t EventType) bool {
	return len(c.ByType(t)) > 0
}

// Reset discards all recorded events.
func (c *CaptureObserver) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

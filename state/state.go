// Package state implements the single source of truth for client application
// state: a path-addressable tree with exact-path subscriptions and computed
// values that recompute when their declared dependencies change.
//
// All delivery is synchronous. A Set call returns only after every subscriber
// on the written path has run, including any computed writes those
// subscribers trigger. Subscribers on ancestor or descendant paths are not
// notified; each subscription is independently keyed by its exact path.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammywammy/oslira-core/bus"
	"github.com/hammywammy/oslira-core/observability"
)

// TopicPrefix is prepended to the written path when a change is published on
// the event bus (e.g. topic "state.queue.items" for path "queue.items").
const TopicPrefix = "state."

const defaultMaxCascadeDepth = 64

// Callback receives the new and previous value after a write to the
// subscribed path.
type Callback func(value, previous any)

// Change is the payload published on the event bus for every write.
type Change struct {
	Path     string
	Value    any
	Previous any
}

type subscriber struct {
	id string
	fn Callback
}

// Manager owns the state tree. Nothing else mutates the tree directly; all
// access goes through Get/Set/Delete/Subscribe. Safe for concurrent use,
// though the ordering guarantees are meaningful for callers that write from
// a single goroutine, matching the event-loop model of the dashboard.
type Manager struct {
	mu           sync.Mutex
	root         map[string]any
	subs         map[string][]subscriber
	computedDeps map[string][]string
	depth        int
	maxDepth     int
	bus          *bus.Bus
	observer     observability.Observer
}

// Option configures a Manager.
type Option func(*Manager)

// WithBus publishes every change on the given event bus under TopicPrefix
// topics, in addition to direct subscriber delivery.
func WithBus(b *bus.Bus) Option {
	return func(m *Manager) { m.bus = b }
}

// WithObserver sets the observer for state events.
func WithObserver(obs observability.Observer) Option {
	return func(m *Manager) { m.observer = observability.Normalize(obs) }
}

// WithMaxCascadeDepth overrides the guard on synchronous notification depth.
func WithMaxCascadeDepth(depth int) Option {
	return func(m *Manager) {
		if depth > 0 {
			m.maxDepth = depth
		}
	}
}

// NewManager creates an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		root:         make(map[string]any),
		subs:         make(map[string][]subscriber),
		computedDeps: make(map[string][]string),
		maxDepth:     defaultMaxCascadeDepth,
		observer:     observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value at path, or nil if absent. An empty path returns the
// root tree. No side effects.
func (m *Manager) Get(path string) any {
	v, _ := m.Lookup(path)
	return v
}

// Lookup returns the value at path and whether it is present.
func (m *Manager) Lookup(path string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lookup(m.root, path)
}

// Set replaces the value at path, then synchronously notifies every
// subscriber registered on exactly that path with (value, previous), in
// registration order. The subscriber list is snapshotted before dispatch, so
// callbacks that subscribe or unsubscribe during delivery do not corrupt the
// in-flight iteration. Cascades triggered by computed values are bounded by
// the cascade depth guard; past the limit the write still lands but
// notification stops and an error event is emitted.
func (m *Manager) Set(path string, value any) {
	if path == "" {
		m.observer.OnEvent(context.Background(), observability.Event{
			Type:   EventEmptyPath,
			Level:  observability.LevelWarn,
			Time:   time.Now(),
			Source: "state",
			Data:   map[string]any{"op": "set"},
		})
		return
	}

	m.mu.Lock()
	previous, _ := lookup(m.root, path)
	writeAt(m.root, path, value)

	entries := make([]subscriber, len(m.subs[path]))
	copy(entries, m.subs[path])

	m.depth++
	overflow := m.depth > m.maxDepth
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.depth--
		m.mu.Unlock()
	}()

	if overflow {
		m.observer.OnEvent(context.Background(), observability.Event{
			Type:   EventCascadeOverflow,
			Level:  observability.LevelError,
			Time:   time.Now(),
			Source: "state",
			Data:   map[string]any{"path": path, "max_depth": m.maxDepth},
		})
		return
	}

	for _, s := range entries {
		m.invoke(s, path, value, previous)
	}

	if m.bus != nil {
		m.bus.Publish(context.Background(), TopicPrefix+path, Change{
			Path:     path,
			Value:    value,
			Previous: previous,
		})
	}
}

// Delete removes the value at path. Subscribers are not notified; removal is
// an explicit lifecycle operation, not a state transition.
func (m *Manager) Delete(path string) {
	if path == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removeAt(m.root, path)
}

// Subscribe registers a callback for writes to exactly path and returns an
// unsubscribe function that removes exactly this registration. Duplicate
// subscriptions to the same path are independent and all fire.
func (m *Manager) Subscribe(path string, fn Callback) func() {
	id := uuid.NewString()

	m.mu.Lock()
	m.subs[path] = append(m.subs[path], subscriber{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		entries := m.subs[path]
		for i, s := range entries {
			if s.id == id {
				m.subs[path] = append(entries[:i:i], entries[i+1:]...)
				if len(m.subs[path]) == 0 {
					delete(m.subs, path)
				}
				return
			}
		}
	}
}

// SubscriberCount returns the number of callbacks registered on path.
func (m *Manager) SubscriberCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[path])
}

// Close destroys all subscriptions and computed definitions and clears the
// tree. The manager is reusable afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.root = make(map[string]any)
	m.subs = make(map[string][]subscriber)
	m.computedDeps = make(map[string][]string)
	m.depth = 0
}

// invoke runs a single callback, recovering panics so one failing subscriber
// cannot suppress delivery to the others.
func (m *Manager) invoke(s subscriber, path string, value, previous any) {
	defer func() {
		if r := recover(); r != nil {
			m.observer.OnEvent(context.Background(), observability.Event{
				Type:   EventSubscriberPanic,
				Level:  observability.LevelError,
				Time:   time.Now(),
				Source: "state",
				Data: map[string]any{
					"path":         path,
					"subscription": s.id,
					"panic":        r,
				},
			})
		}
	}()

	s.fn(value, previous)
}

package prefs

import (
	"context"
	"time"

	"github.com/hammywammy/oslira-core/observability"
	"github.com/hammywammy/oslira-core/state"
)

// Binder keeps a set of state paths in sync with the preference document.
// At Init the persisted values seed the state tree, and every subsequent
// write to a bound path is persisted. Bound paths without a saved value
// keep whatever the state tree already holds.
type Binder struct {
	state    *state.Manager
	store    *Store
	paths    []string
	unsubs   []func()
	observer observability.Observer
}

// BinderOption customizes Binder construction.
type BinderOption func(*Binder)

// WithObserver attaches an observer for preference lifecycle events.
func WithObserver(obs observability.Observer) BinderOption {
	return func(b *Binder) { b.observer = obs }
}

// NewBinder creates a Binder over the given state manager and store. The
// paths slice names the state paths to persist.
func NewBinder(st *state.Manager, store *Store, paths []string, opts ...BinderOption) *Binder {
	b := &Binder{
		state: st,
		store: store,
		paths: append([]string(nil), paths...),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.observer = observability.Normalize(b.observer)
	return b
}

// Init loads the preference document, seeds bound paths into state and
// starts persisting changes to them.
func (b *Binder) Init(ctx context.Context) error {
	if err := b.store.Load(ctx); err != nil {
		return err
	}

	seeded := 0
	for _, path := range b.paths {
		if value, ok := b.store.Get(path); ok {
			b.state.Set(path, value)
			seeded++
		}
	}

	for _, path := range b.paths {
		path := path
		unsub := b.state.Subscribe(path, func(value, _ any) {
			b.persist(path, value)
		})
		b.unsubs = append(b.unsubs, unsub)
	}

	b.emit(EventSeeded, observability.LevelDebug, map[string]any{
		"paths":  len(b.paths),
		"seeded": seeded,
	})
	return nil
}

// Cleanup stops persisting changes and flushes the document one last time.
func (b *Binder) Cleanup(ctx context.Context) error {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil

	if err := b.store.Save(ctx); err != nil {
		return err
	}
	b.emit(EventSaved, observability.LevelDebug, nil)
	return nil
}

func (b *Binder) persist(path string, value any) {
	if err := b.store.Set(path, value); err != nil {
		b.emit(EventPersistFailed, observability.LevelWarn, map[string]any{
			"path":  path,
			"error": err.Error(),
		})
		return
	}
	if err := b.store.Save(context.Background()); err != nil {
		b.emit(EventPersistFailed, observability.LevelWarn, map[string]any{
			"path":  path,
			"error": err.Error(),
		})
	}
}

func (b *Binder) emit(t observability.EventType, level observability.Level, data map[string]any) {
	b.observer.OnEvent(context.Background(), observability.Event{
		Type:   t,
		Level:  level,
		Time:   time.Now(),
		Source: "prefs",
		Data:   data,
	})
}

// Package container implements the dependency container that wires the
// client runtime together: a registry mapping string keys to either
// pre-built singletons or lazily-evaluated factories with declared
// dependency lists.
//
// Resolution is memoized: a factory runs at most once, its result becoming
// the singleton for its key. Each entry moves through an explicit state
// machine (factory, resolving, singleton), which is what makes cycle
// detection a state check rather than a separate bookkeeping map.
//
// Initialize drives the lifecycle in topological order: each module is
// constructed and has its Initializer hook awaited before any dependent is
// touched, so an init hook can rely on its declared dependencies being fully
// initialized. Cleanup tears down in exact reverse initialization order.
package container

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hammywammy/oslira-core/observability"
)

// Factory constructs an instance from its resolved dependencies, passed
// positionally in the order they were declared.
type Factory func(deps ...any) (any, error)

// Initializer is the optional initialization hook. The container awaits it
// during Initialize, in topological order.
type Initializer interface {
	Init(ctx context.Context) error
}

// Cleaner is the optional teardown hook, invoked during Cleanup in reverse
// initialization order.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}

type entryState uint8

const (
	stateFactory entryState = iota
	stateResolving
	stateSingleton
)

type entry struct {
	state    entryState
	instance any
	factory  Factory
	deps     []string
}

// Container is the dependency registry. It is the single owner of the
// entries it holds; collaborators look each other up through Get and never
// share references behind its back. Safe for concurrent use.
type Container struct {
	mu          sync.Mutex
	entries     map[string]*entry
	regOrder    []string
	initOrder   []string
	initialized bool
	critical    map[string]bool
	observer    observability.Observer
}

// Option configures a Container.
type Option func(*Container)

// WithObserver sets the observer for container lifecycle events.
func WithObserver(obs observability.Observer) Option {
	return func(c *Container) { c.observer = observability.Normalize(obs) }
}

// WithCriticalKeys designates keys whose initialization failure aborts
// Initialize. Failures of all other keys are logged and skipped.
func WithCriticalKeys(keys ...string) Option {
	return func(c *Container) {
		for _, key := range keys {
			c.critical[key] = true
		}
	}
}

// New creates an empty Container.
func New(opts ...Option) *Container {
	c := &Container{
		entries:  make(map[string]*entry),
		critical: make(map[string]bool),
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterSingleton stores a pre-built instance under key. Registering over
// an existing singleton fails with *DuplicateRegistrationError. Registering
// over a factory discards the factory in favor of the instance and emits a
// factory-replaced event.
func (c *Container) RegisterSingleton(key string, instance any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		if existing.state != stateFactory {
			return &DuplicateRegistrationError{Key: key}
		}
		existing.state = stateSingleton
		existing.instance = instance
		existing.factory = nil
		existing.deps = nil
		c.observer.OnEvent(context.Background(), observability.Event{
			Type:   EventFactoryReplaced,
			Level:  observability.LevelWarn,
			Time:   time.Now(),
			Source: "container",
			Data:   map[string]any{"key": key},
		})
		return nil
	}

	c.entries[key] = &entry{state: stateSingleton, instance: instance}
	c.regOrder = append(c.regOrder, key)
	return nil
}

// RegisterFactory stores a lazy constructor plus its declared dependency
// keys. Fails with *DuplicateRegistrationError if key is already registered
// as either kind; the existing registration is left untouched.
func (c *Container) RegisterFactory(key string, factory Factory, deps ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return &DuplicateRegistrationError{Key: key}
	}

	c.entries[key] = &entry{
		state:   stateFactory,
		factory: factory,
		deps:    append([]string(nil), deps...),
	}
	c.regOrder = append(c.regOrder, key)
	return nil
}

// Get returns the resolved instance for key. A singleton returns
// immediately; a factory has each declared dependency resolved first (which
// may trigger nested construction), is invoked with the results positionally,
// and its result is memoized as the singleton for key. Subsequent calls are
// cache hits returning the identical instance.
func (c *Container) Get(key string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolve(key, nil)
}

// resolve walks the dependency graph. Caller holds c.mu; stack is the chain
// of keys currently being constructed, used to surface the full cycle.
func (c *Container) resolve(key string, stack []string) (any, error) {
	e, ok := c.entries[key]
	if !ok {
		return nil, &UnresolvedDependencyError{Key: key, Known: c.knownKeys()}
	}

	switch e.state {
	case stateSingleton:
		return e.instance, nil

	case stateResolving:
		cycle := append(stackFrom(stack, key), key)
		return nil, &CircularDependencyError{Cycle: cycle}
	}

	e.state = stateResolving
	stack = append(stack, key)

	resolved := make([]any, 0, len(e.deps))
	for _, dep := range e.deps {
		instance, err := c.resolve(dep, stack)
		if err != nil {
			e.state = stateFactory
			return nil, err
		}
		resolved = append(resolved, instance)
	}

	instance, err := e.factory(resolved...)
	if err != nil {
		e.state = stateFactory
		return nil, &ConstructionError{Key: key, Err: err}
	}

	// First resolution wins: the factory is consumed and the entry becomes
	// a plain singleton.
	e.state = stateSingleton
	e.instance = instance
	e.factory = nil
	e.deps = nil

	return instance, nil
}

// stackFrom trims the resolution stack to the suffix starting at key, so the
// reported cycle names only its members.
func stackFrom(stack []string, key string) []string {
	for i, k := range stack {
		if k == key {
			return append([]string(nil), stack[i:]...)
		}
	}
	return append([]string(nil), stack...)
}

// knownKeys returns all registered keys, sorted. Caller holds c.mu.
func (c *Container) knownKeys() []string {
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is registered, as either kind.
func (c *Container) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Keys returns all registered keys in registration order.
func (c *Container) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.regOrder...)
}

// InitOrder returns the keys in the order they were initialized. Empty
// before Initialize.
func (c *Container) InitOrder() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.initOrder...)
}

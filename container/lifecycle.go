package container

import (
	"context"
	"time"

	"github.com/hammywammy/oslira-core/observability"
)

// Initialize walks the registered factories in topological order
// (dependencies before dependents), resolving each and running its
// Initializer hook before moving on, then performs the same hook pass over
// pre-registered singletons. Initialization is strictly serial: a module's
// Init can rely on its declared dependencies being fully initialized, but
// not on unrelated modules.
//
// Failure of a critical key (see WithCriticalKeys) aborts with
// *CriticalInitError. Failure of any other key is reported through the
// observer and initialization continues with that key left uninitialized.
// A second call is a no-op.
func (c *Container) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}

	factories, err := c.topoOrder()
	if err != nil {
		c.mu.Unlock()
		return err
	}

	var singletons []string
	for _, key := range c.regOrder {
		if c.entries[key].state == stateSingleton {
			singletons = append(singletons, key)
		}
	}
	c.mu.Unlock()

	c.emit(ctx, EventInitializeStart, observability.LevelInfo, map[string]any{
		"factories":  len(factories),
		"singletons": len(singletons),
	})

	for _, key := range factories {
		if err := c.bringUp(ctx, key); err != nil {
			return err
		}
	}
	for _, key := range singletons {
		if err := c.bringUp(ctx, key); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()

	c.emit(ctx, EventInitializeComplete, observability.LevelInfo, map[string]any{
		"order": c.InitOrder(),
	})
	return nil
}

// bringUp resolves one key and runs its Initializer hook, applying the
// critical-key failure policy.
func (c *Container) bringUp(ctx context.Context, key string) error {
	instance, err := c.Get(key)
	if err != nil {
		return c.initFailure(ctx, key, err)
	}

	if ini, ok := instance.(Initializer); ok {
		if err := ini.Init(ctx); err != nil {
			return c.initFailure(ctx, key, err)
		}
	}

	c.mu.Lock()
	c.appendInitOrder(key)
	c.mu.Unlock()

	c.emit(ctx, EventModuleInitialized, observability.LevelDebug, map[string]any{
		"key": key,
	})
	return nil
}

func (c *Container) initFailure(ctx context.Context, key string, err error) error {
	if c.critical[key] {
		c.emit(ctx, EventModuleFailed, observability.LevelError, map[string]any{
			"key":      key,
			"critical": true,
			"error":    err.Error(),
		})
		return &CriticalInitError{Key: key, Err: err}
	}

	c.emit(ctx, EventModuleFailed, observability.LevelWarn, map[string]any{
		"key":      key,
		"critical": false,
		"error":    err.Error(),
	})
	return nil
}

// appendInitOrder records key once, preserving first-initialization order.
// Caller holds c.mu.
func (c *Container) appendInitOrder(key string) {
	for _, k := range c.initOrder {
		if k == key {
			return
		}
	}
	c.initOrder = append(c.initOrder, key)
}

// Cleanup iterates the initialization order in reverse, invoking the Cleaner
// hook on each instance that exposes one. Individual teardown errors are
// reported and swallowed so one failure cannot block cleanup of the rest.
// All registries are then cleared and the container returns to its
// pre-initialization state.
func (c *Container) Cleanup(ctx context.Context) {
	c.mu.Lock()
	keys := make([]string, len(c.initOrder))
	instances := make([]any, len(c.initOrder))
	for i, key := range c.initOrder {
		keys[len(keys)-1-i] = key
		if e, ok := c.entries[key]; ok {
			instances[len(instances)-1-i] = e.instance
		}
	}
	c.mu.Unlock()

	for i, instance := range instances {
		cl, ok := instance.(Cleaner)
		if !ok {
			continue
		}
		if err := cl.Cleanup(ctx); err != nil {
			c.emit(ctx, EventCleanupFailed, observability.LevelWarn, map[string]any{
				"key":   keys[i],
				"error": err.Error(),
			})
			continue
		}
		c.emit(ctx, EventModuleCleaned, observability.LevelDebug, map[string]any{
			"key": keys[i],
		})
	}

	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.regOrder = nil
	c.initOrder = nil
	c.initialized = false
	c.mu.Unlock()

	c.emit(ctx, EventCleanupComplete, observability.LevelInfo, nil)
}

// topoOrder returns all factory keys ordered with dependencies before
// dependents, deterministically by registration order. Caller holds c.mu.
func (c *Container) topoOrder() ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)

	marks := make(map[string]int)
	var order []string

	var visit func(key string, stack []string) error
	visit = func(key string, stack []string) error {
		e, ok := c.entries[key]
		if !ok {
			return &UnresolvedDependencyError{Key: key, Known: c.knownKeys()}
		}
		if e.state != stateFactory {
			return nil
		}

		switch marks[key] {
		case done:
			return nil
		case visiting:
			return &CircularDependencyError{Cycle: append(stackFrom(stack, key), key)}
		}

		marks[key] = visiting
		stack = append(stack, key)
		for _, dep := range e.deps {
			if err := visit(dep, stack); err != nil {
				return err
			}
		}
		marks[key] = done
		order = append(order, key)
		return nil
	}

	for _, key := range c.regOrder {
		if c.entries[key].state != stateFactory {
			continue
		}
		if err := visit(key, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (c *Container) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	c.observer.OnEvent(ctx, observability.Event{
		Type:   t,
		Level:  level,
		Time:   time.Now(),
		Source: "container",
		Data:   data,
	})
}

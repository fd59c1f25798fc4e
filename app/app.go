// Package app assembles the platform subsystems into a dependency
// container and drives their lifecycle. It owns the registry layout:
// which keys exist, what depends on what, and which keys are critical
// enough that their failure aborts startup.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hammywammy/oslira-core/api"
	"github.com/hammywammy/oslira-core/bus"
	"github.com/hammywammy/oslira-core/config"
	"github.com/hammywammy/oslira-core/container"
	"github.com/hammywammy/oslira-core/observability"
	"github.com/hammywammy/oslira-core/prefs"
	"github.com/hammywammy/oslira-core/queue"
	"github.com/hammywammy/oslira-core/state"
)

// Registry keys for the platform subsystems.
const (
	KeyConfig       = "config"
	KeyObserver     = "observer"
	KeyEventBus     = "eventBus"
	KeyStateManager = "stateManager"
	KeyAuth         = "auth"
	KeyAPIClient    = "apiClient"
	KeyPrefs        = "prefs"
	KeyQueue        = "analysisQueue"
)

// criticalKeys are the modules whose init failure aborts startup. Anything
// else logs a warning and the app continues degraded.
var criticalKeys = []string{KeyConfig, KeyStateManager, KeyAuth}

// App is the assembled platform: a configured container plus the retry
// policy around its initialization.
type App struct {
	cfg       *config.Config
	observer  observability.Observer
	container *container.Container

	initAttempts int
	initBackoff  time.Duration
	overrides    map[string]override
}

type override struct {
	factory container.Factory
	deps    []string
}

// Option customizes App construction.
type Option func(*App)

// WithObserver replaces the observer every subsystem reports to.
func WithObserver(obs observability.Observer) Option {
	return func(a *App) { a.observer = obs }
}

// WithInitRetry sets how many times Run attempts initialization and the
// initial backoff between attempts. The backoff doubles per attempt.
func WithInitRetry(attempts int, backoff time.Duration) Option {
	return func(a *App) {
		if attempts > 0 {
			a.initAttempts = attempts
		}
		if backoff > 0 {
			a.initBackoff = backoff
		}
	}
}

// WithOverride replaces the factory registered under key, keeping the key's
// place in the dependency graph. Mainly useful for swapping subsystems out
// in tests.
func WithOverride(key string, factory container.Factory, deps ...string) Option {
	return func(a *App) {
		a.overrides[key] = override{factory: factory, deps: deps}
	}
}

// New builds the container and registers every subsystem. Nothing is
// constructed or initialized until Run.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:          cfg,
		initAttempts: 3,
		initBackoff:  500 * time.Millisecond,
		overrides:    make(map[string]override),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.observer = observability.Normalize(a.observer)

	a.container = container.New(
		container.WithObserver(a.observer),
		container.WithCriticalKeys(criticalKeys...),
	)
	if err := a.register(); err != nil {
		return nil, err
	}

	if report := a.container.Validate(); !report.OK() {
		return nil, fmt.Errorf("invalid registry: %+v", report)
	}
	return a, nil
}

func (a *App) register() error {
	if err := a.registerSingleton(KeyConfig, a.cfg); err != nil {
		return err
	}
	if err := a.registerSingleton(KeyObserver, a.observer); err != nil {
		return err
	}
	if err := a.registerSingleton(KeyEventBus, bus.New(bus.WithObserver(a.observer))); err != nil {
		return err
	}

	err := a.registerFactory(KeyStateManager, func(deps ...any) (any, error) {
		eventBus := deps[0].(*bus.Bus)
		return state.NewManager(
			state.WithBus(eventBus),
			state.WithObserver(a.observer),
		), nil
	}, KeyEventBus)
	if err != nil {
		return err
	}

	err = a.registerFactory(KeyAuth, func(deps ...any) (any, error) {
		cfg := deps[0].(*config.Config)
		return api.NewAuthProvider(cfg.Auth, api.WithAuthObserver(a.observer)), nil
	}, KeyConfig)
	if err != nil {
		return err
	}

	err = a.registerFactory(KeyAPIClient, func(deps ...any) (any, error) {
		cfg := deps[0].(*config.Config)
		auth := deps[1].(api.AuthProvider)
		return api.NewClient(cfg.API, auth, api.WithObserver(a.observer)), nil
	}, KeyConfig, KeyAuth)
	if err != nil {
		return err
	}

	err = a.registerFactory(KeyPrefs, func(deps ...any) (any, error) {
		st := deps[0].(*state.Manager)
		cfg := deps[1].(*config.Config)
		var backend prefs.DocStore = &prefs.MemStore{}
		if cfg.Prefs.Path != "" {
			backend = prefs.NewFileStore(cfg.Prefs.Path)
		}
		store := prefs.NewStore(backend, cfg.Prefs.Prefix)
		return prefs.NewBinder(st, store, cfg.Prefs.Bind, prefs.WithObserver(a.observer)), nil
	}, KeyStateManager, KeyConfig)
	if err != nil {
		return err
	}

	err = a.registerFactory(KeyQueue, func(deps ...any) (any, error) {
		st := deps[0].(*state.Manager)
		client := deps[1].(*api.Client)
		cfg := deps[2].(*config.Config)
		return queue.New(client, st,
			queue.WithConcurrency(cfg.Queue.Concurrency),
			queue.WithObserver(a.observer),
		), nil
	}, KeyStateManager, KeyAPIClient, KeyConfig)
	return err
}

func (a *App) registerSingleton(key string, instance any) error {
	if o, ok := a.overrides[key]; ok {
		return a.container.RegisterFactory(key, o.factory, o.deps...)
	}
	return a.container.RegisterSingleton(key, instance)
}

func (a *App) registerFactory(key string, factory container.Factory, deps ...string) error {
	if o, ok := a.overrides[key]; ok {
		return a.container.RegisterFactory(key, o.factory, o.deps...)
	}
	return a.container.RegisterFactory(key, factory, deps...)
}

// Run initializes every registered subsystem. Failures retry with
// exponential backoff up to the configured attempt count; the container is
// torn down between attempts so each retry starts clean. A critical
// module's failure on the final attempt surfaces to the caller.
func (a *App) Run(ctx context.Context) error {
	backoff := a.initBackoff

	var err error
	for attempt := 1; attempt <= a.initAttempts; attempt++ {
		err = a.container.Initialize(ctx)
		if err == nil {
			a.emit(ctx, EventStarted, observability.LevelInfo, map[string]any{
				"attempt": attempt,
				"modules": len(a.container.Keys()),
			})
			return nil
		}

		a.emit(ctx, EventInitRetry, observability.LevelWarn, map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		})
		a.container.Cleanup(ctx)
		if err := a.register(); err != nil {
			return err
		}

		if attempt == a.initAttempts {
			break
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return fmt.Errorf("initialization failed after %d attempts: %w", a.initAttempts, err)
}

// Shutdown tears down every initialized subsystem in reverse init order.
func (a *App) Shutdown(ctx context.Context) {
	a.container.Cleanup(ctx)
	a.emit(ctx, EventStopped, observability.LevelInfo, nil)
}

// Container exposes the underlying registry.
func (a *App) Container() *container.Container { return a.container }

// State returns the initialized state manager.
func (a *App) State() (*state.Manager, error) {
	v, err := a.container.Get(KeyStateManager)
	if err != nil {
		return nil, err
	}
	return v.(*state.Manager), nil
}

// Bus returns the event bus.
func (a *App) Bus() (*bus.Bus, error) {
	v, err := a.container.Get(KeyEventBus)
	if err != nil {
		return nil, err
	}
	return v.(*bus.Bus), nil
}

// Auth returns the auth provider.
func (a *App) Auth() (api.AuthProvider, error) {
	v, err := a.container.Get(KeyAuth)
	if err != nil {
		return nil, err
	}
	return v.(api.AuthProvider), nil
}

// API returns the backend API client.
func (a *App) API() (*api.Client, error) {
	v, err := a.container.Get(KeyAPIClient)
	if err != nil {
		return nil, err
	}
	return v.(*api.Client), nil
}

// Queue returns the analysis queue.
func (a *App) Queue() (*queue.Queue, error) {
	v, err := a.container.Get(KeyQueue)
	if err != nil {
		return nil, err
	}
	return v.(*queue.Queue), nil
}

func (a *App) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	a.observer.OnEvent(ctx, observability.Event{
		Type:   t,
		Level:  level,
		Time:   time.Now(),
		Source: "app",
		Data:   data,
	})
}

package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hammywammy/oslira-core/observability"
)

// ComputeFunc produces a derived value. It takes no arguments and is expected
// to read whatever state it needs through Manager.Get closures.
type ComputeFunc func() any

// Computed defines a derived value at path. The compute function runs once
// immediately and its result is written to path; a subscription is then
// installed on every dependency path that re-runs the function and rewrites
// path on change.
//
// Dependency edges between computed values are checked at definition time:
// if the new definition would make some computed value a (transitive) input
// of itself, Computed returns ErrComputedCycle and installs nothing. The
// cascade depth guard on Set remains as a backstop for cycles the static
// check cannot see (compute functions reading undeclared paths).
func (m *Manager) Computed(path string, fn ComputeFunc, deps ...string) error {
	if path == "" {
		return fmt.Errorf("%w: empty target path", ErrInvalidComputed)
	}
	if len(deps) == 0 {
		return fmt.Errorf("%w: %q declares no dependencies", ErrInvalidComputed, path)
	}

	m.mu.Lock()
	if cycle := m.findComputedCycle(path, deps); cycle != nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrComputedCycle, strings.Join(cycle, " -> "))
	}
	m.computedDeps[path] = append([]string(nil), deps...)
	m.mu.Unlock()

	if value, ok := m.compute(path, fn); ok {
		m.Set(path, value)
	}

	for _, dep := range deps {
		m.Subscribe(dep, func(_, _ any) {
			if value, ok := m.compute(path, fn); ok {
				m.Set(path, value)
			}
		})
	}

	return nil
}

// findComputedCycle reports a dependency cycle that adding (target, deps)
// would introduce among computed definitions, or nil. Caller holds m.mu.
func (m *Manager) findComputedCycle(target string, deps []string) []string {
	// Walk from each declared dependency through existing computed edges;
	// reaching target closes a cycle.
	var walk func(node string, trail []string) []string
	walk = func(node string, trail []string) []string {
		trail = append(trail, node)
		if node == target {
			return trail
		}
		for _, next := range m.computedDeps[node] {
			if found := walk(next, trail); found != nil {
				return found
			}
		}
		return nil
	}

	for _, dep := range deps {
		if found := walk(dep, []string{target}); found != nil {
			return found
		}
	}
	return nil
}

// compute runs fn, recovering panics. A panicking compute function skips the
// write and reports the failure instead of tearing down the caller.
func (m *Manager) compute(path string, fn ComputeFunc) (value any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			m.observer.OnEvent(context.Background(), observability.Event{
				Type:   EventComputePanic,
				Level:  observability.LevelError,
				Time:   time.Now(),
				Source: "state",
				Data:   map[string]any{"path": path, "panic": r},
			})
		}
	}()

	return fn(), true
}

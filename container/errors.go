package container

import (
	"fmt"
	"strings"
)

// DuplicateRegistrationError is returned when a key is registered twice in a
// way the container does not permit. The existing registration is never
// mutated.
type DuplicateRegistrationError struct {
	Key string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("container: key %q is already registered", e.Key)
}

// UnresolvedDependencyError is returned when resolution requires a key that
// was never registered. Known enumerates all currently registered keys to
// aid debugging.
type UnresolvedDependencyError struct {
	Key   string
	Known []string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("container: dependency %q is not registered (known keys: %s)",
		e.Key, strings.Join(e.Known, ", "))
}

// CircularDependencyError is returned when resolution revisits a key already
// being constructed on the current resolution stack. Cycle names the full
// cycle, ending with the repeated key.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("container: circular dependency: %s", strings.Join(e.Cycle, " -> "))
}

// ConstructionError wraps a factory failure with the key being built.
type ConstructionError struct {
	Key string
	Err error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("container: building %q: %v", e.Key, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// CriticalInitError is returned by Initialize when a designated critical
// key's initialization fails; it halts further initialization.
type CriticalInitError struct {
	Key string
	Err error
}

func (e *CriticalInitError) Error() string {
	return fmt.Sprintf("container: critical module %q failed to initialize: %v", e.Key, e.Err)
}

func (e *CriticalInitError) Unwrap() error { return e.Err }

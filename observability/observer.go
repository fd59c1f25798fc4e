// Package observability provides event-based instrumentation for the client
// runtime. Subsystems emit typed events to an Observer; implementations route
// them to log/slog, fan them out to several sinks, or capture them for tests.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level represents event severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the severity text for the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// SlogLevel maps this level to the corresponding slog.Level for log emission.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType identifies the kind of event. Each subsystem defines its own
// constants using this type (e.g., "container.module.initialized").
type EventType string

// Event is an observability event emitted by a subsystem.
type Event struct {
	Type   EventType
	Level  Level
	Time   time.Time
	Source string
	Data   map[string]any
}

// Observer receives events from subsystems for logging, tracing, or metrics.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// Normalize returns obs unchanged, or NoOpObserver when obs is nil. Callers
// storing an injected observer normalize it once at construction so emission
// sites never need a nil check.
func Normalize(obs Observer) Observer {
	if obs == nil {
		return NoOpObserver{}
	}
	return obs
}

package app

import "github.com/hammywammy/oslira-core/observability"

const (
	// EventStarted is emitted once every module has initialized.
	EventStarted observability.EventType = "app.started"
	// EventStopped is emitted after shutdown completes.
	EventStopped observability.EventType = "app.stopped"
	// EventInitRetry is emitted when an initialization attempt fails and
	// another attempt remains.
	EventInitRetry observability.EventType = "app.init.retry"
)

package queue

import "github.com/hammywammy/oslira-core/observability"

const (
	// EventStarted is emitted once the worker pool is running.
	EventStarted observability.EventType = "queue.started"
	// EventStopped is emitted after every worker has exited.
	EventStopped observability.EventType = "queue.stopped"
	// EventEnqueued is emitted when an item is accepted.
	EventEnqueued observability.EventType = "queue.item.enqueued"
	// EventCompleted is emitted when an analysis finishes successfully.
	EventCompleted observability.EventType = "queue.item.completed"
	// EventFailed is emitted when an item reaches the failed status.
	EventFailed observability.EventType = "queue.item.failed"
)

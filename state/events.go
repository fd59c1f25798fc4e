package state

import "github.com/hammywammy/oslira-core/observability"

// State event types.
const (
	EventSubscriberPanic observability.EventType = "state.subscriber.panic"
	EventComputePanic    observability.EventType = "state.compute.panic"
	EventCascadeOverflow observability.EventType = "state.cascade.overflow"
	EventEmptyPath       observability.EventType = "state.path.empty"
)

package bus

import "github.com/hammywammy/oslira-core/observability"

// Bus event types.
const (
	EventHandlerPanic observability.EventType = "bus.handler.panic"
)

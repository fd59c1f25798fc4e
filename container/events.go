package container

import "github.com/hammywammy/oslira-core/observability"

// Container lifecycle event types.
const (
	EventFactoryReplaced    observability.EventType = "container.factory.replaced"
	EventInitializeStart    observability.EventType = "container.initialize.start"
	EventInitializeComplete observability.EventType = "container.initialize.complete"
	EventModuleInitialized  observability.EventType = "container.module.initialized"
	EventModuleFailed       observability.EventType = "container.module.failed"
	EventModuleCleaned      observability.EventType = "container.module.cleaned"
	EventCleanupFailed      observability.EventType = "container.cleanup.failed"
	EventCleanupComplete    observability.EventType = "container.cleanup.complete"
)

package api

import "github.com/hammywammy/oslira-core/observability"

// API event types.
const (
	EventSignedIn         observability.EventType = "api.auth.signin"
	EventSignedOut        observability.EventType = "api.auth.signout"
	EventSessionRefreshed observability.EventType = "api.auth.refreshed"
	EventCacheHit         observability.EventType = "api.cache.hit"
	EventRequestDeduped   observability.EventType = "api.request.deduped"
	EventRequestFailed    observability.EventType = "api.request.failed"
)

package prefs

import "github.com/hammywammy/oslira-core/observability"

const (
	// EventSeeded is emitted after persisted preferences are written
	// into the state tree at startup.
	EventSeeded observability.EventType = "prefs.seeded"
	// EventPersistFailed is emitted when a bound state change could not
	// be written back to the preference document.
	EventPersistFailed observability.EventType = "prefs.persist.failed"
	// EventSaved is emitted after the document is flushed to its backend.
	EventSaved observability.EventType = "prefs.saved"
)

package domain

import "time"

// EventKind names a session transition.
type EventKind string

const (
	EventStarted          EventKind = "session_started"
	EventLocationResolved EventKind = "location_resolved"
	EventContactStarted   EventKind = "contact_started"
	EventTick             EventKind = "tick"
	EventCompleted        EventKind = "session_completed"
	EventFailed           EventKind = "session_failed"
	EventReset            EventKind = "session_reset"
)

// Event is emitted after every transition with the state it produced.
type Event struct {
	Kind     EventKind
	At       time.Time
	Snapshot Snapshot
}

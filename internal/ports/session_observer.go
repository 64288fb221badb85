package ports

import (
	"context"
	"sos-dispatch-service/internal/domain"
	"time"
)

// SessionObserver receives every session transition in order.
// Events arrive with the transition already applied; implementations must not
// call back into the orchestrator.
type SessionObserver interface {
	OnEvent(ev domain.Event)
}

// SessionRecord is one persisted SOS session.
type SessionRecord struct {
	ID         string
	Status     domain.Status
	Latitude   *float64
	Longitude  *float64
	Contacted  []string
	ErrorKind  domain.ErrorKind
	Completion domain.CompletionReason
	StartedAt  time.Time
	EndedAt    *time.Time
}

// Port: read access to persisted session history.
type SessionHistory interface {
	ListSessions(ctx context.Context, limit int) ([]SessionRecord, error)
}

package services

import (
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/ports"
	"sync"

	"github.com/rs/zerolog/log"
)

// QueuedObserver hands events to next on its own goroutine, in order, so a
// slow observer (a remote database write) does not hold up transitions.
// OnEvent only blocks once size events are waiting.
type QueuedObserver struct {
	next   ports.SessionObserver
	events chan domain.Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ ports.SessionObserver = (*QueuedObserver)(nil)

func NewQueuedObserver(next ports.SessionObserver, size int) *QueuedObserver {
	if size <= 0 {
		size = 1
	}
	q := &QueuedObserver{
		next:   next,
		events: make(chan domain.Event, size),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *QueuedObserver) run() {
	defer close(q.done)
	for ev := range q.events {
		q.next.OnEvent(ev)
	}
}

func (q *QueuedObserver) OnEvent(ev domain.Event) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		log.Warn().Str("event", string(ev.Kind)).Str("session_id", ev.Snapshot.SessionID).Msg("observer queue closed; event dropped")
		return
	}
	q.events <- ev
}

// Close stops accepting events and waits until every queued one has been
// delivered. Safe to call more than once.
func (q *QueuedObserver) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()

	<-q.done
}

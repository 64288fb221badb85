package clock

import (
	"sync"
	"time"
)

// Manual is a deterministic clock for tests: time only moves on Advance, and
// due callbacks run synchronously on the caller's goroutine.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	timers map[int]*manualTimer
}

type manualTimer struct {
	interval time.Duration
	next     time.Time
	fn       func()
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start, timers: make(map[int]*manualTimer)}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Every(interval time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.timers[id] = &manualTimer{interval: interval, next: m.now.Add(interval), fn: fn}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.timers, id)
	}
}

// Advance moves time forward by d, firing every callback that falls due in
// order. Callbacks registered while advancing are honoured too.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)

	for {
		t := m.earliestDue(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}

		m.now = t.next
		t.next = t.next.Add(t.interval)
		fn := t.fn

		m.mu.Unlock()
		fn()
		m.mu.Lock()
	}
}

// Active is the number of live registrations.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Ties fire in registration order.
func (m *Manual) earliestDue(target time.Time) *manualTimer {
	bestID := -1
	var best *manualTimer
	for id, t := range m.timers {
		if t.next.After(target) {
			continue
		}
		if best == nil || t.next.Before(best.next) || (t.next.Equal(best.next) && id < bestID) {
			bestID, best = id, t
		}
	}
	return best
}

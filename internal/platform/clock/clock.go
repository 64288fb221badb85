package clock

import (
	"sync"
	"time"
)

// System is the wall-clock implementation of ports.Clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Every runs fn on its own goroutine once per interval. Ticks that race with
// stop are dropped; callers still guard against stale ticks themselves.
func (System) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	var once sync.Once
	stop := func() { once.Do(func() { close(done) }) }

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}

			select {
			case <-done:
				return
			default:
			}

			fn()
		}
	}()

	return stop
}

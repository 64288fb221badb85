package ports

import "time"

// Clock is the time source for countdowns.
type Clock interface {
	Now() time.Time
	// Every calls fn once per interval until stop is called. stop must be
	// safe to call from inside fn and more than once.
	Every(interval time.Duration, fn func()) (stop func())
}

package location

import (
	"context"
	"fmt"
	"sos-dispatch-service/internal/domain"
	"time"
)

type report struct {
	coords domain.Coordinates
	err    error
}

// Reported is fed by the device: it pushes either a fix or a failure, and
// GetLocation waits for it. Only the latest report is kept.
type Reported struct {
	timeout time.Duration
	reports chan report
}

func NewReported(timeout time.Duration) *Reported {
	return &Reported{timeout: timeout, reports: make(chan report, 1)}
}

// Report delivers a position fix.
func (r *Reported) Report(c domain.Coordinates) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("report location: %w", err)
	}
	r.put(report{coords: c})
	return nil
}

// ReportFailure delivers a failed fix. Errors other than
// domain.ErrLocationPermissionDenied are treated as position unavailable.
func (r *Reported) ReportFailure(err error) {
	r.put(report{err: err})
}

// Drain drops any report that has not been consumed.
func (r *Reported) Drain() {
	select {
	case <-r.reports:
	default:
	}
}

func (r *Reported) put(rep report) {
	for {
		select {
		case r.reports <- rep:
			return
		default:
			r.Drain()
		}
	}
}

func (r *Reported) GetLocation(ctx context.Context) (domain.Coordinates, error) {
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case rep := <-r.reports:
		if rep.err != nil {
			return domain.Coordinates{}, rep.err
		}
		return rep.coords, nil
	case <-timer.C:
		return domain.Coordinates{}, fmt.Errorf("no location reported within %s: %w", r.timeout, domain.ErrLocationUnavailable)
	case <-ctx.Done():
		return domain.Coordinates{}, ctx.Err()
	}
}

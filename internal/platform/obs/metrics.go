package obs

import (
	"fmt"
	"net/http"
	"sos-dispatch-service/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles Prometheus metrics for SOS sessions. It implements
// ports.SessionObserver so the orchestrator drives it directly.
type Collector struct {
	gatherer prometheus.Gatherer

	SessionsStarted  prometheus.Counter
	SessionOutcomes  *prometheus.CounterVec
	ContactAttempts  prometheus.Counter
	RemainingSeconds prometheus.Gauge
}

// NewCollector registers SOS metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	started, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sos_sessions_started_total",
		Help: "Total number of SOS sessions triggered.",
	}), "sos_sessions_started_total")
	if err != nil {
		return nil, err
	}

	outcomes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sos_session_outcomes_total",
		Help: "Finished SOS sessions, labeled by terminal status and reason.",
	}, []string{"status", "reason"}), "sos_session_outcomes_total")
	if err != nil {
		return nil, err
	}

	contacts, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sos_contact_attempts_total",
		Help: "Hospitals whose contact countdown has started.",
	}), "sos_contact_attempts_total")
	if err != nil {
		return nil, err
	}

	remaining, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sos_countdown_remaining_seconds",
		Help: "Remaining countdown for the hospital currently being contacted.",
	}), "sos_countdown_remaining_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		SessionsStarted:  started,
		SessionOutcomes:  outcomes,
		ContactAttempts:  contacts,
		RemainingSeconds: remaining,
	}, nil
}

func (c *Collector) OnEvent(ev domain.Event) {
	if c == nil {
		return
	}

	switch ev.Kind {
	case domain.EventStarted:
		c.SessionsStarted.Inc()
	case domain.EventContactStarted:
		c.ContactAttempts.Inc()
		c.RemainingSeconds.Set(float64(ev.Snapshot.RemainingSeconds))
	case domain.EventTick:
		c.RemainingSeconds.Set(float64(ev.Snapshot.RemainingSeconds))
	case domain.EventCompleted:
		c.SessionOutcomes.WithLabelValues(string(domain.StatusCompleted), string(ev.Snapshot.Completion)).Inc()
		c.RemainingSeconds.Set(0)
	case domain.EventFailed:
		c.SessionOutcomes.WithLabelValues(string(domain.StatusError), string(ev.Snapshot.ErrorKind)).Inc()
		c.RemainingSeconds.Set(0)
	case domain.EventReset:
		c.RemainingSeconds.Set(0)
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

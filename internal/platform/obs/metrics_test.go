package obs

import (
	"net/http"
	"net/http/httptest"
	"sos-dispatch-service/internal/domain"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCountsSessionEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.OnEvent(domain.Event{Kind: domain.EventStarted})
	c.OnEvent(domain.Event{Kind: domain.EventContactStarted, Snapshot: domain.Snapshot{RemainingSeconds: 30}})
	c.OnEvent(domain.Event{Kind: domain.EventTick, Snapshot: domain.Snapshot{RemainingSeconds: 29}})

	if got := testutil.ToFloat64(c.RemainingSeconds); got != 29 {
		t.Fatalf("remaining = %v, want 29", got)
	}

	c.OnEvent(domain.Event{Kind: domain.EventCompleted, Snapshot: domain.Snapshot{Completion: domain.CompletedHelpReceived}})
	c.OnEvent(domain.Event{Kind: domain.EventStarted})
	c.OnEvent(domain.Event{Kind: domain.EventFailed, Snapshot: domain.Snapshot{ErrorKind: domain.ErrorNoHospitalsFound}})

	if got := testutil.ToFloat64(c.SessionsStarted); got != 2 {
		t.Fatalf("started = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.ContactAttempts); got != 1 {
		t.Fatalf("contacts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.SessionOutcomes.WithLabelValues("COMPLETED", "help_received")); got != 1 {
		t.Fatalf("completed outcome = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.SessionOutcomes.WithLabelValues("ERROR", "no_hospitals_found")); got != 1 {
		t.Fatalf("error outcome = %v, want 1", got)
	}
}

func TestNewCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("first NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}

	second.OnEvent(domain.Event{Kind: domain.EventStarted})
	if got := testutil.ToFloat64(first.SessionsStarted); got != 1 {
		t.Fatalf("shared counter = %v, want 1", got)
	}
}

func TestCollectorHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.OnEvent(domain.Event{Kind: domain.EventStarted})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sos_sessions_started_total 1") {
		t.Fatalf("metrics body missing counter:\n%s", rec.Body.String())
	}
}

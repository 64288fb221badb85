package services

import (
	"context"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/platform/clock"
	"sync"
	"testing"
	"time"
)

type gatedObserver struct {
	gate chan struct{}

	mu    sync.Mutex
	kinds []domain.EventKind
}

func (o *gatedObserver) OnEvent(ev domain.Event) {
	<-o.gate
	o.mu.Lock()
	o.kinds = append(o.kinds, ev.Kind)
	o.mu.Unlock()
}

func TestQueuedObserverDoesNotWaitForSlowObserver(t *testing.T) {
	slow := &gatedObserver{gate: make(chan struct{})}
	q := NewQueuedObserver(slow, 8)

	sent := make(chan struct{})
	go func() {
		q.OnEvent(domain.Event{Kind: domain.EventStarted})
		q.OnEvent(domain.Event{Kind: domain.EventLocationResolved})
		q.OnEvent(domain.Event{Kind: domain.EventContactStarted})
		close(sent)
	}()

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatalf("OnEvent blocked on a slow observer")
	}

	close(slow.gate)
	q.Close()

	want := []domain.EventKind{domain.EventStarted, domain.EventLocationResolved, domain.EventContactStarted}
	if len(slow.kinds) != len(want) {
		t.Fatalf("delivered %v, want %v", slow.kinds, want)
	}
	for i := range want {
		if slow.kinds[i] != want[i] {
			t.Fatalf("delivered %v, want %v", slow.kinds, want)
		}
	}

	q.OnEvent(domain.Event{Kind: domain.EventReset})
	q.Close()
	if len(slow.kinds) != len(want) {
		t.Fatalf("event after Close was delivered: %v", slow.kinds)
	}
}

func TestOrchestratorStopNotHeldUpBySlowQueuedObserver(t *testing.T) {
	slow := &gatedObserver{gate: make(chan struct{})}
	q := NewQueuedObserver(slow, 64)
	defer func() {
		close(slow.gate)
		q.Close()
	}()

	clk := clock.NewManual(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC))
	o, err := NewOrchestrator(
		OrchestratorConfig{ContactSeconds: 30, TickInterval: time.Second},
		fixedLocator(testLocation), fixedFinder(threeHospitals()),
		WithClock(clk),
		WithObservers(q),
	)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	defer o.Close()

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	stopped := make(chan error, 1)
	go func() {
		clk.Advance(5 * time.Second)
		stopped <- o.Stop()
	}()

	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("stop: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("stop waited on a slow observer")
	}
	if got := o.Snapshot().Status; got != domain.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", got)
	}
}

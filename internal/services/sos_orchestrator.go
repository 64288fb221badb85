package services

import (
	"context"
	"errors"
	"fmt"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/platform/clock"
	"sos-dispatch-service/internal/ports"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("sos orchestrator closed")
	// ErrSessionDiscarded is returned by Start when the session it was driving
	// was reset or torn down before discovery finished.
	ErrSessionDiscarded = errors.New("sos session discarded")
)

type OrchestratorConfig struct {
	// Countdown length per hospital, in ticks.
	ContactSeconds int
	// Wall-clock length of one tick.
	TickInterval time.Duration
}

func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{ContactSeconds: 30, TickInterval: time.Second}
}

type Option func(*Orchestrator)

func WithClock(c ports.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

func WithObservers(observers ...ports.SessionObserver) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, observers...) }
}

func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// Orchestrator drives one SOS session at a time through
// IDLE -> GETTING_LOCATION -> FINDING_HOSPITALS -> CONTACTING -> COMPLETED/ERROR.
//
// It owns exactly one countdown handle. Every path out of CONTACTING stops
// it under the state lock before the status changes, and each tick carries
// the generation it was scheduled with so a tick that raced a restart is
// ignored.
//
// Observers are notified in transition order, outside the state lock.
type Orchestrator struct {
	cfg       OrchestratorConfig
	locator   ports.LocationProvider
	finder    ports.HospitalFinder
	clock     ports.Clock
	newID     func() string
	observers []ports.SessionObserver

	mu        sync.Mutex
	session   *domain.Session
	stopTimer func()
	timerGen  uint64
	cancelRun context.CancelFunc
	closed    bool

	// Held while delivering events; acquired before mu is released so
	// delivery order matches transition order.
	dispatchMu sync.Mutex
}

func NewOrchestrator(
	cfg OrchestratorConfig,
	locator ports.LocationProvider,
	finder ports.HospitalFinder,
	opts ...Option,
) (*Orchestrator, error) {
	if locator == nil {
		return nil, errors.New("new orchestrator: location provider is nil")
	}
	if finder == nil {
		return nil, errors.New("new orchestrator: hospital finder is nil")
	}
	if cfg.ContactSeconds <= 0 {
		return nil, fmt.Errorf("new orchestrator: contact seconds must be positive, got %d", cfg.ContactSeconds)
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("new orchestrator: tick interval must be positive, got %s", cfg.TickInterval)
	}

	o := &Orchestrator{
		cfg:     cfg,
		locator: locator,
		finder:  finder,
		clock:   clock.System{},
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.session = domain.NewSession(cfg.ContactSeconds)

	return o, nil
}

// Start triggers SOS. It blocks while the location and the hospital list are
// resolved, then returns with the countdown running in the background.
// A failed session is returned as a *domain.SessionError.
func (o *Orchestrator) Start(ctx context.Context) error {
	run, err := o.begin(ctx)
	if err != nil {
		return err
	}
	return o.discover(run)
}

// Launch is Start with discovery moved to a goroutine. Triggers that are not
// valid right now fail synchronously; otherwise the returned snapshot is in
// GETTING_LOCATION and the discovery outcome arrives on the channel.
func (o *Orchestrator) Launch(ctx context.Context) (domain.Snapshot, <-chan error, error) {
	run, err := o.begin(ctx)
	if err != nil {
		return domain.Snapshot{}, nil, err
	}

	done := make(chan error, 1)
	go func() { done <- o.discover(run) }()
	return run.started, done, nil
}

type discovery struct {
	ctx     context.Context
	cancel  context.CancelFunc
	session *domain.Session
	started domain.Snapshot
}

func (o *Orchestrator) begin(ctx context.Context) (*discovery, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}

	sess := o.session
	if err := sess.Begin(o.newID(), o.clock.Now()); err != nil {
		o.mu.Unlock()
		return nil, fmt.Errorf("start sos: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancelRun = cancel

	ev := o.event(domain.EventStarted)
	o.publish(ev)
	return &discovery{ctx: runCtx, cancel: cancel, session: sess, started: ev.Snapshot}, nil
}

func (o *Orchestrator) discover(run *discovery) error {
	defer run.cancel()
	sess := run.session

	coords, err := o.locator.GetLocation(run.ctx)

	o.mu.Lock()
	if !o.owns(sess) {
		o.mu.Unlock()
		return ErrSessionDiscarded
	}
	if err != nil {
		o.cancelRun = nil
		_ = sess.FailLocation(err, o.clock.Now())
		o.publish(o.event(domain.EventFailed))
		return sess.Err
	}
	if err := sess.ResolveLocation(coords); err != nil {
		o.mu.Unlock()
		return fmt.Errorf("start sos: %w", err)
	}
	o.publish(o.event(domain.EventLocationResolved))

	hospitals, err := o.finder.FindHospitals(run.ctx, coords)

	o.mu.Lock()
	if !o.owns(sess) {
		o.mu.Unlock()
		return ErrSessionDiscarded
	}
	o.cancelRun = nil
	if err != nil {
		_ = sess.FailLookup(err, o.clock.Now())
		o.publish(o.event(domain.EventFailed))
		return sess.Err
	}

	if err := sess.ResolveHospitals(hospitals, o.clock.Now()); err != nil {
		o.mu.Unlock()
		return fmt.Errorf("start sos: %w", err)
	}
	if sess.Status == domain.StatusError {
		o.publish(o.event(domain.EventFailed))
		return sess.Err
	}

	o.startCountdown(sess)
	o.publish(o.event(domain.EventContactStarted))
	return nil
}

// Stop signals that help was received: CONTACTING -> COMPLETED. The
// countdown is stopped before the status changes.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if o.session.Status != domain.StatusContacting {
		status := o.session.Status
		o.mu.Unlock()
		return fmt.Errorf("stop sos: %w: status is %s", domain.ErrInvalidTransition, status)
	}

	o.stopCountdown()
	if err := o.session.HelpReceived(o.clock.Now()); err != nil {
		o.mu.Unlock()
		return fmt.Errorf("stop sos: %w", err)
	}
	o.publish(o.event(domain.EventCompleted))
	return nil
}

// Reset discards the session, whatever its state, and installs a fresh IDLE
// one. Any countdown or in-flight discovery is torn down first.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.stopCountdown()
	if o.cancelRun != nil {
		o.cancelRun()
		o.cancelRun = nil
	}
	o.session = domain.NewSession(o.cfg.ContactSeconds)
	o.publish(o.event(domain.EventReset))
}

// Snapshot returns a copy of the current session.
func (o *Orchestrator) Snapshot() domain.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Snapshot()
}

// Close tears down the countdown and any in-flight discovery. The session
// state is left as is; Start fails afterwards.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closed = true
	o.stopCountdown()
	if o.cancelRun != nil {
		o.cancelRun()
		o.cancelRun = nil
	}
}

func (o *Orchestrator) tick(sess *domain.Session, gen uint64) {
	o.mu.Lock()
	if !o.owns(sess) || gen != o.timerGen || o.stopTimer == nil {
		o.mu.Unlock()
		return
	}

	res, err := sess.Tick(o.clock.Now())
	if err != nil {
		o.stopCountdown()
		o.mu.Unlock()
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("countdown tick outside CONTACTING")
		return
	}

	switch res {
	case domain.TickAdvanced:
		o.startCountdown(sess)
		o.publish(o.event(domain.EventContactStarted))
	case domain.TickExhausted:
		o.stopCountdown()
		o.publish(o.event(domain.EventCompleted))
	default:
		o.publish(o.event(domain.EventTick))
	}
}

// startCountdown replaces the countdown with a fresh one. mu must be held.
func (o *Orchestrator) startCountdown(sess *domain.Session) {
	o.stopCountdown()
	gen := o.timerGen
	o.stopTimer = o.clock.Every(o.cfg.TickInterval, func() { o.tick(sess, gen) })
}

// stopCountdown stops the live countdown, if any, and invalidates its ticks.
// mu must be held.
func (o *Orchestrator) stopCountdown() {
	o.timerGen++
	if o.stopTimer != nil {
		o.stopTimer()
		o.stopTimer = nil
	}
}

func (o *Orchestrator) owns(sess *domain.Session) bool {
	return !o.closed && o.session == sess
}

// mu must be held.
func (o *Orchestrator) event(kind domain.EventKind) domain.Event {
	return domain.Event{Kind: kind, At: o.clock.Now(), Snapshot: o.session.Snapshot()}
}

// publish hands the events to observers. mu must be held on entry and is
// released before any observer runs. The next transition waits for the
// previous delivery, so a transition is delayed by at most the slowest
// observer's OnEvent; observers doing I/O go behind a QueuedObserver.
func (o *Orchestrator) publish(events ...domain.Event) {
	o.dispatchMu.Lock()
	o.mu.Unlock()
	defer o.dispatchMu.Unlock()

	for _, ev := range events {
		logEvent(ev)
		for _, obs := range o.observers {
			obs.OnEvent(ev)
		}
	}
}

func logEvent(ev domain.Event) {
	level := zerolog.InfoLevel
	switch ev.Kind {
	case domain.EventTick:
		level = zerolog.TraceLevel
	case domain.EventFailed:
		level = zerolog.WarnLevel
	}

	snap := ev.Snapshot
	e := log.WithLevel(level).
		Str("event", string(ev.Kind)).
		Str("session_id", snap.SessionID).
		Str("status", string(snap.Status))

	switch ev.Kind {
	case domain.EventContactStarted, domain.EventTick:
		e = e.Int("index", snap.CurrentIndex).
			Str("hospital", snap.CurrentHospital).
			Int("remaining", snap.RemainingSeconds)
	case domain.EventCompleted:
		e = e.Str("reason", string(snap.Completion)).Int("contacted", len(snap.Contacted))
	case domain.EventFailed:
		e = e.Str("error_kind", string(snap.ErrorKind))
	}
	e.Msg("sos transition")
}

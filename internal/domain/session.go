package domain

import (
	"fmt"
	"time"
)

// CompletionReason records why a session reached COMPLETED.
type CompletionReason string

const (
	CompletedHelpReceived CompletionReason = "help_received"
	CompletedExhausted    CompletionReason = "exhausted"
)

// TickResult describes what a single countdown tick did.
type TickResult int

const (
	TickCounted TickResult = iota
	TickAdvanced
	TickExhausted
)

// Session is the mutable state of one SOS episode. It only changes through
// its transition methods, each of which validates the current status.
//
// Invariants:
//   - Contacted is always Candidates[:CurrentIndex+1] while CONTACTING.
//   - CurrentIndex is -1 unless the status is CONTACTING.
//   - RemainingSeconds lies in [0, Duration] and resets to Duration exactly
//     when a new contact starts.
type Session struct {
	ID               string
	Duration         int
	Status           Status
	Location         *Coordinates
	Candidates       []Hospital
	Contacted        []Hospital
	CurrentIndex     int
	RemainingSeconds int
	Err              *SessionError
	Completion       CompletionReason
	StartedAt        time.Time
	EndedAt          time.Time
}

// NewSession returns an IDLE session whose countdown lasts duration ticks
// per hospital.
func NewSession(duration int) *Session {
	return &Session{
		Duration:         duration,
		Status:           StatusIdle,
		CurrentIndex:     -1,
		RemainingSeconds: duration,
	}
}

// Begin handles the user trigger: IDLE -> GETTING_LOCATION.
func (s *Session) Begin(id string, at time.Time) error {
	if err := s.expect(StatusIdle); err != nil {
		return err
	}
	s.ID = id
	s.StartedAt = at
	s.Err = nil
	s.Status = StatusGettingLocation
	return nil
}

// ResolveLocation stores the coordinates: GETTING_LOCATION -> FINDING_HOSPITALS.
func (s *Session) ResolveLocation(c Coordinates) error {
	if err := s.expect(StatusGettingLocation); err != nil {
		return err
	}
	s.Location = &c
	s.Status = StatusFindingHospitals
	return nil
}

// FailLocation aborts the session after the location provider failed.
func (s *Session) FailLocation(cause error, at time.Time) error {
	if err := s.expect(StatusGettingLocation); err != nil {
		return err
	}
	s.fail(NewSessionError(ClassifyLocationError(cause), cause), at)
	return nil
}

// ResolveHospitals stores the ranked candidates and starts contacting the
// first one. An empty list aborts the session with ErrorNoHospitalsFound.
func (s *Session) ResolveHospitals(hospitals []Hospital, at time.Time) error {
	if err := s.expect(StatusFindingHospitals); err != nil {
		return err
	}
	if len(hospitals) == 0 {
		s.fail(NewSessionError(ErrorNoHospitalsFound, nil), at)
		return nil
	}

	s.Candidates = append([]Hospital(nil), hospitals...)
	s.Status = StatusContacting
	s.startContact(0)
	return nil
}

// FailLookup aborts the session after the hospital finder failed.
func (s *Session) FailLookup(cause error, at time.Time) error {
	if err := s.expect(StatusFindingHospitals); err != nil {
		return err
	}
	s.fail(NewSessionError(ErrorLookupFailed, cause), at)
	return nil
}

// Tick consumes one unit of the current countdown. When it reaches zero the
// session advances to the next candidate, or completes when none remain.
func (s *Session) Tick(at time.Time) (TickResult, error) {
	if err := s.expect(StatusContacting); err != nil {
		return TickCounted, err
	}

	if s.RemainingSeconds > 0 {
		s.RemainingSeconds--
	}
	if s.RemainingSeconds > 0 {
		return TickCounted, nil
	}

	next := s.CurrentIndex + 1
	if next < len(s.Candidates) {
		s.startContact(next)
		return TickAdvanced, nil
	}

	s.complete(CompletedExhausted, at)
	return TickExhausted, nil
}

// HelpReceived stops early: CONTACTING -> COMPLETED. Contacted is kept.
func (s *Session) HelpReceived(at time.Time) error {
	if err := s.expect(StatusContacting); err != nil {
		return err
	}
	s.complete(CompletedHelpReceived, at)
	return nil
}

// Current is the hospital being contacted, if any.
func (s *Session) Current() (Hospital, bool) {
	if s.Status != StatusContacting || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Candidates) {
		return Hospital{}, false
	}
	return s.Candidates[s.CurrentIndex], true
}

// startContact is the only place a hospital joins Contacted: the instant its
// countdown starts.
func (s *Session) startContact(index int) {
	s.CurrentIndex = index
	s.Contacted = append(s.Contacted, s.Candidates[index])
	s.RemainingSeconds = s.Duration
}

func (s *Session) complete(reason CompletionReason, at time.Time) {
	s.Status = StatusCompleted
	s.Completion = reason
	s.CurrentIndex = -1
	s.EndedAt = at
}

func (s *Session) fail(err *SessionError, at time.Time) {
	s.Status = StatusError
	s.Err = err
	s.CurrentIndex = -1
	s.EndedAt = at
}

func (s *Session) expect(want Status) error {
	if s.Status != want {
		return fmt.Errorf("%w: status is %s, want %s", ErrInvalidTransition, s.Status, want)
	}
	return nil
}

package domain

import "time"

// ContactedHospital is a hospital whose countdown has started, flagged when it
// is the one currently being contacted.
type ContactedHospital struct {
	Hospital
	Current bool
}

// Snapshot is a read-only copy of a Session for observers and transports.
type Snapshot struct {
	SessionID        string
	Status           Status
	Location         *Coordinates
	CandidateCount   int
	Contacted        []ContactedHospital
	CurrentIndex     int
	CurrentHospital  string
	RemainingSeconds int
	DurationSeconds  int
	ErrorKind        ErrorKind
	ErrorMessage     string
	Completion       CompletionReason
	StartedAt        time.Time
	EndedAt          time.Time
}

// Snapshot copies the session so callers cannot mutate it.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:        s.ID,
		Status:           s.Status,
		CandidateCount:   len(s.Candidates),
		Contacted:        make([]ContactedHospital, 0, len(s.Contacted)),
		CurrentIndex:     s.CurrentIndex,
		RemainingSeconds: s.RemainingSeconds,
		DurationSeconds:  s.Duration,
		Completion:       s.Completion,
		StartedAt:        s.StartedAt,
		EndedAt:          s.EndedAt,
	}

	if s.Location != nil {
		loc := *s.Location
		snap.Location = &loc
	}

	for i, h := range s.Contacted {
		snap.Contacted = append(snap.Contacted, ContactedHospital{
			Hospital: h,
			Current:  s.Status == StatusContacting && i == s.CurrentIndex,
		})
	}

	if h, ok := s.Current(); ok {
		snap.CurrentHospital = h.Name
	}

	if s.Err != nil {
		snap.ErrorKind = s.Err.Kind
		snap.ErrorMessage = s.Err.Message()
	}

	return snap
}

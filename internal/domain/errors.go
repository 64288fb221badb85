package domain

import (
	"errors"
	"fmt"
)

// Location failures reported by a LocationProvider.
var (
	ErrLocationPermissionDenied = errors.New("location permission denied")
	ErrLocationUnavailable      = errors.New("location unavailable")
)

// ErrInvalidTransition is returned when a trigger is not valid in the
// session's current status.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrorKind classifies why a session ended in ERROR.
type ErrorKind string

const (
	ErrorLocationPermissionDenied ErrorKind = "location_permission_denied"
	ErrorLocationUnavailable      ErrorKind = "location_unavailable"
	ErrorNoHospitalsFound         ErrorKind = "no_hospitals_found"
	ErrorLookupFailed             ErrorKind = "lookup_failed"
)

// Message is the user-facing text for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case ErrorLocationPermissionDenied:
		return "Location access was denied. Please enable location permissions in your device settings to use this feature."
	case ErrorLocationUnavailable:
		return "Could not get your location. Please enable location services and try again."
	case ErrorNoHospitalsFound:
		return "No hospitals found nearby. Please try again or contact emergency services directly."
	case ErrorLookupFailed:
		return "Failed to find hospitals due to a lookup error. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}

// SessionError is the terminal failure of an SOS session.
type SessionError struct {
	Kind ErrorKind
	Err  error
}

func NewSessionError(kind ErrorKind, err error) *SessionError {
	return &SessionError{Kind: kind, Err: err}
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sos session failed: %s", e.Kind)
	}
	return fmt.Sprintf("sos session failed: %s: %v", e.Kind, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// Message is the user-facing text.
func (e *SessionError) Message() string { return e.Kind.Message() }

// ClassifyLocationError maps a LocationProvider failure onto the taxonomy.
// Anything that is not an explicit permission denial counts as unavailable.
func ClassifyLocationError(err error) ErrorKind {
	if errors.Is(err, ErrLocationPermissionDenied) {
		return ErrorLocationPermissionDenied
	}
	return ErrorLocationUnavailable
}

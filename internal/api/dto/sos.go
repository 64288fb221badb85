package dto

import (
	"sos-dispatch-service/internal/domain"
	"time"
)

// LocationReport is what a device posts with POST /sos or /sos/location:
// either a position fix or the reason it could not get one.
type LocationReport struct {
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	LocationError string   `json:"location_error"`
}

// Values accepted in LocationReport.LocationError.
const (
	LocationErrorPermissionDenied    = "permission_denied"
	LocationErrorPositionUnavailable = "position_unavailable"
)

type LocationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type ContactedHospitalResponse struct {
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	Phone         string   `json:"phone"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	DistanceKm    *float64 `json:"distance_km,omitempty"`
	DirectionsURL string   `json:"directions_url"`
	Current       bool     `json:"current"`
}

type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type SnapshotResponse struct {
	SessionID        string                      `json:"session_id,omitempty"`
	Status           string                      `json:"status"`
	Location         *LocationResponse           `json:"location,omitempty"`
	CandidateCount   int                         `json:"candidate_count"`
	Contacted        []ContactedHospitalResponse `json:"contacted"`
	CurrentIndex     int                         `json:"current_index"`
	CurrentHospital  string                      `json:"current_hospital,omitempty"`
	RemainingSeconds int                         `json:"remaining_seconds"`
	DurationSeconds  int                         `json:"duration_seconds"`
	Error            *ErrorResponse              `json:"error,omitempty"`
	Completion       string                      `json:"completion,omitempty"`
	StartedAt        *time.Time                  `json:"started_at,omitempty"`
	EndedAt          *time.Time                  `json:"ended_at,omitempty"`
}

func NewSnapshotResponse(s domain.Snapshot) SnapshotResponse {
	res := SnapshotResponse{
		SessionID:        s.SessionID,
		Status:           string(s.Status),
		CandidateCount:   s.CandidateCount,
		Contacted:        make([]ContactedHospitalResponse, 0, len(s.Contacted)),
		CurrentIndex:     s.CurrentIndex,
		CurrentHospital:  s.CurrentHospital,
		RemainingSeconds: s.RemainingSeconds,
		DurationSeconds:  s.DurationSeconds,
		Completion:       string(s.Completion),
	}

	if s.Location != nil {
		res.Location = &LocationResponse{Latitude: s.Location.Lat, Longitude: s.Location.Lon}
	}

	for _, h := range s.Contacted {
		ch := ContactedHospitalResponse{
			Name:          h.Name,
			Address:       h.Address,
			Phone:         h.Phone,
			DistanceKm:    h.DistanceKm(),
			DirectionsURL: h.DirectionsURL(),
			Current:       h.Current,
		}
		if h.Location != nil {
			lat, lon := h.Location.Lat, h.Location.Lon
			ch.Latitude, ch.Longitude = &lat, &lon
		}
		res.Contacted = append(res.Contacted, ch)
	}

	if s.ErrorKind != "" {
		res.Error = &ErrorResponse{Kind: string(s.ErrorKind), Message: s.ErrorMessage}
	}
	if !s.StartedAt.IsZero() {
		t := s.StartedAt
		res.StartedAt = &t
	}
	if !s.EndedAt.IsZero() {
		t := s.EndedAt
		res.EndedAt = &t
	}

	return res
}

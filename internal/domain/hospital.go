package domain

import (
	"fmt"
	"net/url"
)

// Represents a candidate hospital produced by a HospitalFinder.
// Ordering within a returned list is the contact priority; the orchestrator
// never re-sorts. Location and DistanceMeters are optional: not every finder
// backend knows them.
type Hospital struct {
	Name           string
	Address        string
	Phone          string
	Location       *Coordinates
	DistanceMeters *float64
}

// DirectionsURL links to turn-by-turn directions when the hospital location
// is known, and to a name+address search otherwise.
func (h Hospital) DirectionsURL() string {
	if h.Location != nil {
		return fmt.Sprintf(
			"https://www.google.com/maps/dir/?api=1&destination=%v,%v",
			h.Location.Lat, h.Location.Lon,
		)
	}

	q := url.Values{}
	q.Set("api", "1")
	q.Set("query", h.Name+" "+h.Address)
	return "https://www.google.com/maps/search/?" + q.Encode()
}

// DistanceKm is nil when the finder did not report a distance.
func (h Hospital) DistanceKm() *float64 {
	if h.DistanceMeters == nil {
		return nil
	}
	km := *h.DistanceMeters / 1000
	return &km
}

package ports

import (
	"context"
	"sos-dispatch-service/internal/domain"
)

// DirectoryEntry is a stored hospital with known coordinates.
type DirectoryEntry struct {
	ID       int
	Name     string
	Address  string
	Phone    string
	Location domain.Coordinates
}

// Port: a boundary for reading the hospital directory.
type HospitalDirectory interface {
	// Return every hospital whose coordinates fall inside the box.
	ListWithin(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]DirectoryEntry, error)
}

package ports

import (
	"context"
	"sos-dispatch-service/internal/domain"
)

// PlaceDetails is the contact information a places index holds for one place.
type PlaceDetails struct {
	Name     string
	Address  string
	Phone    string
	Location *domain.Coordinates
}

// Persistent cache of place details keyed by place id.
type PlaceCache interface {
	GetMany(ctx context.Context, placeIDs []string) (map[string]PlaceDetails, error)
	PutMany(ctx context.Context, details map[string]PlaceDetails) error
}

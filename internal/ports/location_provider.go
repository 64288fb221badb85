package ports

import (
	"context"
	"sos-dispatch-service/internal/domain"
)

// Contract for resolving the user's current position.
type LocationProvider interface {
	// Return the current coordinates, or an error wrapping
	// domain.ErrLocationPermissionDenied / domain.ErrLocationUnavailable.
	GetLocation(ctx context.Context) (domain.Coordinates, error)
}

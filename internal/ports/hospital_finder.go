package ports

import (
	"context"
	"sos-dispatch-service/internal/domain"
)

// Contract for discovering candidate hospitals around a position.
type HospitalFinder interface {
	// Return at most a small bounded number of hospitals, ranked by
	// suitability (nearest first). An empty result is not an error.
	FindHospitals(ctx context.Context, at domain.Coordinates) ([]domain.Hospital, error)
}

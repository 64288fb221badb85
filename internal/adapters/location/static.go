package location

import (
	"context"
	"fmt"
	"sos-dispatch-service/internal/domain"
)

// Static always reports the same coordinates.
type Static struct {
	coords domain.Coordinates
}

func NewStatic(c domain.Coordinates) (*Static, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("static location: %w", err)
	}
	return &Static{coords: c}, nil
}

func (s *Static) GetLocation(ctx context.Context) (domain.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, err
	}
	return s.coords, nil
}

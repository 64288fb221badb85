package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/platform/obs"
	"sos-dispatch-service/internal/ports"
)

// Finder answers hospital lookups from a local hospital directory, widening
// the search radius the same way a places index search does.
type Finder struct {
	dir    ports.HospitalDirectory
	limit  int
	radius domain.RadiusSchedule
}

func NewFinder(dir ports.HospitalDirectory, limit int, radius domain.RadiusSchedule) (*Finder, error) {
	if dir == nil {
		return nil, errors.New("directory finder: directory is nil")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("directory finder: limit must be positive, got %d", limit)
	}
	if len(radius.Radii()) == 0 {
		return nil, errors.New("directory finder: empty radius schedule")
	}
	return &Finder{dir: dir, limit: limit, radius: radius}, nil
}

func (f *Finder) FindHospitals(ctx context.Context, at domain.Coordinates) (_ []domain.Hospital, err error) {
	defer obs.Time(ctx, "directory.FindHospitals")(&err)

	for _, radius := range f.radius.Radii() {
		minLat, maxLat, minLon, maxLon := at.BoundingBox(radius)
		entries, err := f.dir.ListWithin(ctx, minLat, maxLat, minLon, maxLon)
		if err != nil {
			return nil, fmt.Errorf("list hospitals within %.0fm: %w", radius, err)
		}

		found := make([]domain.Hospital, 0, len(entries))
		for _, e := range entries {
			d := at.DistanceMeters(e.Location)
			if d > radius {
				continue
			}
			loc := e.Location
			found = append(found, domain.Hospital{
				Name:           e.Name,
				Address:        e.Address,
				Phone:          e.Phone,
				Location:       &loc,
				DistanceMeters: &d,
			})
		}
		if len(found) == 0 {
			continue
		}

		sort.SliceStable(found, func(i, j int) bool { return *found[i].DistanceMeters < *found[j].DistanceMeters })
		if len(found) > f.limit {
			found = found[:f.limit]
		}
		return found, nil
	}

	return []domain.Hospital{}, nil
}

package domain

// RadiusSchedule describes an expanding search: start at Initial meters and
// grow by Step while nothing is found and the radius is still below Max.
type RadiusSchedule struct {
	Initial float64
	Step    float64
	Max     float64
}

// DefaultRadiusSchedule searches 2km, then 5km, 8km and 11km.
func DefaultRadiusSchedule() RadiusSchedule {
	return RadiusSchedule{Initial: 2000, Step: 3000, Max: 10000}
}

// Radii lists every radius a search may try, in order. The last entry is the
// first radius that reaches or passes Max.
func (r RadiusSchedule) Radii() []float64 {
	if r.Initial <= 0 {
		return nil
	}

	radii := []float64{r.Initial}
	if r.Step <= 0 {
		return radii
	}

	for radius := r.Initial; radius < r.Max; {
		radius += r.Step
		radii = append(radii, radius)
	}
	return radii
}

package directory

import (
	"context"
	"errors"
	"fmt"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/ports"
	"testing"
)

type memoryDirectory struct {
	entries []ports.DirectoryEntry
	calls   int
	err     error
}

func (m *memoryDirectory) ListWithin(_ context.Context, minLat, maxLat, minLon, maxLon float64) ([]ports.DirectoryEntry, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []ports.DirectoryEntry
	for _, e := range m.entries {
		if e.Location.Lat >= minLat && e.Location.Lat <= maxLat && e.Location.Lon >= minLon && e.Location.Lon <= maxLon {
			out = append(out, e)
		}
	}
	return out, nil
}

var origin = domain.Coordinates{Lat: 51.5074, Lon: -0.1278}

func entryAt(id int, name string, dLat float64) ports.DirectoryEntry {
	return ports.DirectoryEntry{
		ID:       id,
		Name:     name,
		Phone:    fmt.Sprintf("+44 20 0000 %04d", id),
		Location: domain.Coordinates{Lat: origin.Lat + dLat, Lon: origin.Lon},
	}
}

func TestFindHospitalsNearestFirst(t *testing.T) {
	dir := &memoryDirectory{entries: []ports.DirectoryEntry{
		entryAt(1, "Third", 0.015),
		entryAt(2, "First", 0.002),
		entryAt(3, "Fourth", 0.017),
		entryAt(4, "Second", 0.010),
	}}
	f, err := NewFinder(dir, 3, domain.DefaultRadiusSchedule())
	if err != nil {
		t.Fatalf("new finder: %v", err)
	}

	got, err := f.FindHospitals(context.Background(), origin)
	if err != nil {
		t.Fatalf("find hospitals: %v", err)
	}

	// Everything sits inside 2km, so one search is enough.
	if dir.calls != 1 {
		t.Fatalf("calls = %d, want 1", dir.calls)
	}
	want := []string{"First", "Second", "Third"}
	if len(got) != len(want) {
		t.Fatalf("got %d hospitals, want %d", len(got), len(want))
	}
	for i, h := range got {
		if h.Name != want[i] {
			t.Fatalf("hospital[%d] = %q, want %q", i, h.Name, want[i])
		}
	}
}

func TestFindHospitalsExpandsAndCaps(t *testing.T) {
	dir := &memoryDirectory{entries: []ports.DirectoryEntry{
		entryAt(1, "C", 0.040),
		entryAt(2, "A", 0.030),
		entryAt(3, "D", 0.045),
		entryAt(4, "B", 0.035),
	}}
	f, err := NewFinder(dir, 3, domain.DefaultRadiusSchedule())
	if err != nil {
		t.Fatalf("new finder: %v", err)
	}

	got, err := f.FindHospitals(context.Background(), origin)
	if err != nil {
		t.Fatalf("find hospitals: %v", err)
	}

	// 0.030 deg is about 3.3km: nothing at 2km, everything by 5km.
	if dir.calls != 2 {
		t.Fatalf("calls = %d, want 2", dir.calls)
	}
	want := []string{"A", "B", "C"}
	if len(got) != len(want) {
		t.Fatalf("got %d hospitals, want %d", len(got), len(want))
	}
	for i, h := range got {
		if h.Name != want[i] {
			t.Fatalf("hospital[%d] = %q, want %q", i, h.Name, want[i])
		}
		if h.DistanceMeters == nil || h.Location == nil {
			t.Fatalf("hospital[%d] missing distance or location", i)
		}
	}
}

func TestFindHospitalsNoneInRange(t *testing.T) {
	dir := &memoryDirectory{entries: []ports.DirectoryEntry{entryAt(1, "Far", 1.0)}}
	f, _ := NewFinder(dir, 3, domain.DefaultRadiusSchedule())

	got, err := f.FindHospitals(context.Background(), origin)
	if err != nil {
		t.Fatalf("find hospitals: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d hospitals, want 0", len(got))
	}
	if dir.calls != 4 {
		t.Fatalf("calls = %d, want 4", dir.calls)
	}
}

func TestFindHospitalsDirectoryError(t *testing.T) {
	boom := errors.New("db down")
	f, _ := NewFinder(&memoryDirectory{err: boom}, 3, domain.DefaultRadiusSchedule())

	if _, err := f.FindHospitals(context.Background(), origin); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

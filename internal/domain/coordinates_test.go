package domain

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestCoordinatesDistanceMeters(t *testing.T) {
	// Bengaluru MG Road -> Cubbon Park, roughly 1.3km apart.
	a := Coordinates{Lat: 12.9756, Lon: 77.6050}
	b := Coordinates{Lat: 12.9763, Lon: 77.5929}

	got := a.DistanceMeters(b)
	if got < 1200 || got > 1400 {
		t.Fatalf("distance = %.1f, want ~1300m", got)
	}
	if d := a.DistanceMeters(a); d != 0 {
		t.Fatalf("self distance = %v", d)
	}
}

func TestCoordinatesBoundingBoxContainsRadius(t *testing.T) {
	c := Coordinates{Lat: 12.9, Lon: 77.6}
	minLat, maxLat, minLon, maxLon := c.BoundingBox(5000)

	north := Coordinates{Lat: maxLat, Lon: c.Lon}
	if d := c.DistanceMeters(north); math.Abs(d-5000) > 1 {
		t.Fatalf("north edge distance = %.2f, want 5000", d)
	}
	if minLat >= c.Lat || minLon >= c.Lon || maxLon <= c.Lon {
		t.Fatalf("box does not surround point: %v %v %v %v", minLat, maxLat, minLon, maxLon)
	}
}

func TestCoordinatesValidate(t *testing.T) {
	if err := (Coordinates{Lat: 12.9, Lon: 77.6}).Validate(); err != nil {
		t.Fatalf("valid coordinates rejected: %v", err)
	}
	if err := (Coordinates{Lat: 91, Lon: 0}).Validate(); err == nil {
		t.Fatal("latitude 91 accepted")
	}
	if err := (Coordinates{Lat: 0, Lon: -181}).Validate(); err == nil {
		t.Fatal("longitude -181 accepted")
	}
}

func TestRadiusScheduleRadii(t *testing.T) {
	got := DefaultRadiusSchedule().Radii()
	want := []float64{2000, 5000, 8000, 11000}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("radii = %v, want %v", got, want)
	}

	if got := (RadiusSchedule{Initial: 1000}).Radii(); !reflect.DeepEqual(got, []float64{1000}) {
		t.Fatalf("no-step radii = %v", got)
	}
}

func TestHospitalDirectionsURL(t *testing.T) {
	h := Hospital{Name: "City General", Address: "1 Main St"}
	if u := h.DirectionsURL(); !strings.Contains(u, "maps/search") || !strings.Contains(u, "City+General") {
		t.Fatalf("search url = %q", u)
	}

	h.Location = &Coordinates{Lat: 12.5, Lon: 77.25}
	if u := h.DirectionsURL(); u != "https://www.google.com/maps/dir/?api=1&destination=12.5,77.25" {
		t.Fatalf("directions url = %q", u)
	}
}

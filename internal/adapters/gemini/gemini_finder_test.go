package gemini

import (
	"context"
	"errors"
	"sos-dispatch-service/internal/domain"
	"strings"
	"testing"
)

type stubGenerator struct {
	reply  string
	err    error
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func newStubFinder(gen generator, limit int) *Finder {
	return &Finder{gen: gen, limit: limit, radius: 2000}
}

func TestFindHospitalsParsesReply(t *testing.T) {
	gen := &stubGenerator{reply: `
	[
		{"name": "City General", "address": "1 Main St", "phone": "+1 555 0100"},
		{"name": "  ", "address": "nameless", "phone": ""},
		{"name": "Riverside", "address": "2 River Rd", "phone": "+1 555 0101"},
		{"name": "Hilltop", "address": "3 Hill Ave", "phone": "+1 555 0102"},
		{"name": "Overflow", "address": "4 Extra Ln", "phone": "+1 555 0103"}
	]`}

	got, err := newStubFinder(gen, 3).FindHospitals(context.Background(), domain.Coordinates{Lat: 40.7128, Lon: -74.006})
	if err != nil {
		t.Fatalf("find hospitals: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("got %d hospitals, want 3", len(got))
	}
	if got[0].Name != "City General" || got[1].Name != "Riverside" || got[2].Name != "Hilltop" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Location != nil || got[0].DistanceMeters != nil {
		t.Fatalf("model results carry no location")
	}

	for _, want := range []string{"top 3 hospitals", "latitude 40.7128", "longitude -74.006", "2km radius"} {
		if !strings.Contains(gen.prompt, want) {
			t.Fatalf("prompt %q missing %q", gen.prompt, want)
		}
	}
}

func TestFindHospitalsEmptyReply(t *testing.T) {
	got, err := newStubFinder(&stubGenerator{reply: "  \n"}, 3).FindHospitals(context.Background(), domain.Coordinates{})
	if err != nil {
		t.Fatalf("find hospitals: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d hospitals, want 0", len(got))
	}
}

func TestFindHospitalsErrors(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{"generate error", &stubGenerator{err: errors.New("quota exceeded")}},
		{"not json", &stubGenerator{reply: "Here are some hospitals near you"}},
		{"wrong shape", &stubGenerator{reply: `{"name": "City General"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newStubFinder(tt.gen, 3).FindHospitals(context.Background(), domain.Coordinates{}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestFormatRadius(t *testing.T) {
	if got := formatRadius(2000); got != "2km" {
		t.Fatalf("formatRadius(2000) = %q", got)
	}
	if got := formatRadius(500); got != "500m" {
		t.Fatalf("formatRadius(500) = %q", got)
	}
}

func TestNewFinderRequiresKey(t *testing.T) {
	if _, err := NewFinder(context.Background(), Config{Limit: 3}); err == nil {
		t.Fatalf("expected missing key error")
	}
}

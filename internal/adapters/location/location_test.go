package location

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sos-dispatch-service/internal/domain"
	"testing"
	"time"
)

func TestStatic(t *testing.T) {
	want := domain.Coordinates{Lat: 40.7128, Lon: -74.006}
	p, err := NewStatic(want)
	if err != nil {
		t.Fatalf("new static: %v", err)
	}
	got, err := p.GetLocation(context.Background())
	if err != nil || got != want {
		t.Fatalf("got %v, %v; want %v", got, err, want)
	}

	if _, err := NewStatic(domain.Coordinates{Lat: 91}); err == nil {
		t.Fatalf("expected invalid latitude to be rejected")
	}
}

func TestReportedDeliversLatestReport(t *testing.T) {
	r := NewReported(time.Second)

	if err := r.Report(domain.Coordinates{Lat: 1, Lon: 1}); err != nil {
		t.Fatalf("report: %v", err)
	}
	if err := r.Report(domain.Coordinates{Lat: 2, Lon: 2}); err != nil {
		t.Fatalf("report: %v", err)
	}

	got, err := r.GetLocation(context.Background())
	if err != nil {
		t.Fatalf("get location: %v", err)
	}
	if got != (domain.Coordinates{Lat: 2, Lon: 2}) {
		t.Fatalf("got %v, want latest report", got)
	}
}

func TestReportedWaitsForReport(t *testing.T) {
	r := NewReported(2 * time.Second)

	go func() {
		time.Sleep(10 * time.Millisecond)
		r.ReportFailure(domain.ErrLocationPermissionDenied)
	}()

	_, err := r.GetLocation(context.Background())
	if !errors.Is(err, domain.ErrLocationPermissionDenied) {
		t.Fatalf("err = %v, want permission denied", err)
	}
}

func TestReportedTimeout(t *testing.T) {
	r := NewReported(5 * time.Millisecond)

	_, err := r.GetLocation(context.Background())
	if !errors.Is(err, domain.ErrLocationUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
}

func TestReportedDrainAndCancel(t *testing.T) {
	r := NewReported(time.Second)
	if err := r.Report(domain.Coordinates{Lat: 1, Lon: 1}); err != nil {
		t.Fatalf("report: %v", err)
	}
	r.Drain()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.GetLocation(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	if err := r.Report(domain.Coordinates{Lat: 100}); err == nil {
		t.Fatalf("expected invalid report to be rejected")
	}
}

func TestIPAPI(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    domain.Coordinates
		wantErr bool
	}{
		{name: "ok", status: 200, body: `{"latitude":51.5074,"longitude":-0.1278,"city":"London"}`, want: domain.Coordinates{Lat: 51.5074, Lon: -0.1278}},
		{name: "reserved address", status: 200, body: `{"error":true,"reason":"Reserved IP Address"}`, wantErr: true},
		{name: "missing coordinates", status: 200, body: `{"city":"Nowhere"}`, wantErr: true},
		{name: "forbidden", status: 403, body: `denied`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/json/" {
					t.Errorf("path = %q", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewIPAPI(srv.URL, time.Second).GetLocation(context.Background())
			if tt.wantErr {
				if !errors.Is(err, domain.ErrLocationUnavailable) {
					t.Fatalf("err = %v, want unavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("get location: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

package cache

import (
	"context"
	"errors"
	"sos-dispatch-service/internal/domain"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingFinder struct {
	calls  int
	result []domain.Hospital
	err    error
}

func (f *countingFinder) FindHospitals(context.Context, domain.Coordinates) ([]domain.Hospital, error) {
	f.calls++
	return f.result, f.err
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func sampleHospitals() []domain.Hospital {
	dist := 850.5
	return []domain.Hospital{
		{
			Name:           "City General",
			Address:        "1 Main St",
			Phone:          "+1 555 0100",
			Location:       &domain.Coordinates{Lat: 40.7130, Lon: -74.0060},
			DistanceMeters: &dist,
		},
		{Name: "Walk-in Clinic", Address: "2 Side St", Phone: "+1 555 0101"},
	}
}

var here = domain.Coordinates{Lat: 40.71281, Lon: -74.00601}

func TestRedisFinderCacheHit(t *testing.T) {
	mr, rdb := newRedis(t)
	next := &countingFinder{result: sampleHospitals()}
	c := NewRedisFinderCache(next, rdb, 10*time.Minute)

	first, err := c.FindHospitals(context.Background(), here)
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	if !mr.Exists("sos:hospitals:40.7128:-74.0060") {
		t.Fatalf("result not cached; keys = %v", mr.Keys())
	}

	// Within the rounding cell, the cached copy is served.
	second, err := c.FindHospitals(context.Background(), domain.Coordinates{Lat: 40.71283, Lon: -74.00604})
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("finder called %d times, want 1", next.calls)
	}

	if len(second) != len(first) {
		t.Fatalf("cached %d hospitals, want %d", len(second), len(first))
	}
	if second[0].Location == nil || *second[0].Location != *first[0].Location {
		t.Fatalf("location lost: %+v", second[0])
	}
	if second[0].DistanceMeters == nil || *second[0].DistanceMeters != 850.5 {
		t.Fatalf("distance lost: %+v", second[0])
	}
	if second[1].Location != nil || second[1].Phone != "+1 555 0101" {
		t.Fatalf("second hospital = %+v", second[1])
	}

	mr.FastForward(11 * time.Minute)
	if _, err := c.FindHospitals(context.Background(), here); err != nil {
		t.Fatalf("lookup after expiry: %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("finder called %d times after expiry, want 2", next.calls)
	}
}

func TestRedisFinderCacheSkipsEmptyAndErrors(t *testing.T) {
	mr, rdb := newRedis(t)

	empty := &countingFinder{result: []domain.Hospital{}}
	c := NewRedisFinderCache(empty, rdb, time.Minute)
	for i := 0; i < 2; i++ {
		if _, err := c.FindHospitals(context.Background(), here); err != nil {
			t.Fatalf("lookup: %v", err)
		}
	}
	if empty.calls != 2 || len(mr.Keys()) != 0 {
		t.Fatalf("empty results must not be cached: calls=%d keys=%v", empty.calls, mr.Keys())
	}

	boom := errors.New("upstream down")
	failing := NewRedisFinderCache(&countingFinder{err: boom}, rdb, time.Minute)
	if _, err := failing.FindHospitals(context.Background(), here); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("errors must not be cached: keys=%v", mr.Keys())
	}
}

func TestRedisFinderCacheDegradesWithoutRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	next := &countingFinder{result: sampleHospitals()}
	c := NewRedisFinderCache(next, rdb, time.Minute)

	got, err := c.FindHospitals(context.Background(), here)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(got) != 2 || next.calls != 1 {
		t.Fatalf("got %d hospitals after %d calls", len(got), next.calls)
	}
}

func TestRedisFinderCacheCorruptEntry(t *testing.T) {
	mr, rdb := newRedis(t)
	if err := mr.Set(finderKey(here), "not json"); err != nil {
		t.Fatalf("seed redis: %v", err)
	}

	next := &countingFinder{result: sampleHospitals()}
	c := NewRedisFinderCache(next, rdb, time.Minute)

	if _, err := c.FindHospitals(context.Background(), here); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("finder called %d times, want 1", next.calls)
	}
}

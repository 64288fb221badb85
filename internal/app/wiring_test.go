package app

import (
	"context"
	"sos-dispatch-service/internal/adapters/cache"
	"sos-dispatch-service/internal/adapters/directory"
	"sos-dispatch-service/internal/adapters/location"
	"sos-dispatch-service/internal/adapters/places"
	"sos-dispatch-service/internal/adapters/repositories"
	"sos-dispatch-service/internal/config"
	"sos-dispatch-service/internal/platform/db"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestBuildFinder(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	if err := repositories.InitSchema(ctx, conn); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	cfg := config.Default()
	f, closeFn, err := BuildFinder(ctx, cfg, conn)
	if err != nil {
		t.Fatalf("directory finder: %v", err)
	}
	if _, ok := f.(*directory.Finder); !ok {
		t.Fatalf("finder = %T, want *directory.Finder", f)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	cfg.Finder.Backend = config.FinderPlaces
	cfg.Finder.GoogleMapsAPIKey = "key"
	f, _, err = BuildFinder(ctx, cfg, conn)
	if err != nil {
		t.Fatalf("places finder: %v", err)
	}
	if _, ok := f.(*places.Finder); !ok {
		t.Fatalf("finder = %T, want *places.Finder", f)
	}

	mr := miniredis.RunT(t)
	cfg.Redis.Addr = mr.Addr()
	f, closeFn, err = BuildFinder(ctx, cfg, conn)
	if err != nil {
		t.Fatalf("cached finder: %v", err)
	}
	if _, ok := f.(*cache.RedisFinderCache); !ok {
		t.Fatalf("finder = %T, want *cache.RedisFinderCache", f)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	cfg.Redis.Addr = ""
	cfg.Finder.Backend = config.FinderDirectory
	if _, _, err := BuildFinder(ctx, cfg, nil); err == nil {
		t.Fatalf("directory finder without db should fail")
	}
	cfg.Finder.Backend = "unknown"
	if _, _, err := BuildFinder(ctx, cfg, conn); err == nil {
		t.Fatalf("unknown backend should fail")
	}
}

func TestBuildLocator(t *testing.T) {
	cfg := config.Default().Location

	p, reporter, err := BuildLocator(cfg)
	if err != nil || reporter == nil {
		t.Fatalf("reported: %v %v", reporter, err)
	}
	if _, ok := p.(*location.Reported); !ok {
		t.Fatalf("provider = %T, want *location.Reported", p)
	}

	cfg.Source = config.LocationIPAPI
	if p, reporter, err = BuildLocator(cfg); err != nil || reporter != nil {
		t.Fatalf("ipapi: %v %v", reporter, err)
	}
	if _, ok := p.(*location.IPAPI); !ok {
		t.Fatalf("provider = %T, want *location.IPAPI", p)
	}

	cfg.Source = config.LocationStatic
	cfg.Latitude, cfg.Longitude = 95, 0
	if _, _, err := BuildLocator(cfg); err == nil {
		t.Fatalf("static with bad latitude should fail")
	}
}

package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sos-dispatch-service/internal/adapters/cache"
	"sos-dispatch-service/internal/adapters/directory"
	"sos-dispatch-service/internal/adapters/gemini"
	"sos-dispatch-service/internal/adapters/location"
	"sos-dispatch-service/internal/adapters/places"
	"sos-dispatch-service/internal/adapters/repositories"
	"sos-dispatch-service/internal/config"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/ports"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func RadiusSchedule(cfg config.FinderConfig) domain.RadiusSchedule {
	return domain.RadiusSchedule{
		Initial: cfg.RadiusInitialM,
		Step:    cfg.RadiusStepM,
		Max:     cfg.RadiusMaxM,
	}
}

// BuildFinder returns the configured hospital finder, behind the Redis
// result cache when a Redis address is set. conn is only needed by the
// places and directory backends. The returned close func releases clients.
func BuildFinder(ctx context.Context, cfg config.Config, conn *sql.DB) (ports.HospitalFinder, func() error, error) {
	var (
		finder  ports.HospitalFinder
		closers []func() error
	)

	fc := cfg.Finder
	switch fc.Backend {
	case config.FinderPlaces:
		var placeCache ports.PlaceCache
		if conn != nil {
			placeCache = cache.NewSQLPlaceCache(conn, cfg.Database.Driver)
		}
		f, err := places.NewFinder(places.Config{
			APIKey:  fc.GoogleMapsAPIKey,
			Limit:   fc.ResultLimit,
			Radius:  RadiusSchedule(fc),
			Timeout: 10 * time.Second,
		}, placeCache)
		if err != nil {
			return nil, nil, err
		}
		finder = f

	case config.FinderGemini:
		f, err := gemini.NewFinder(ctx, gemini.Config{
			APIKey:       fc.GeminiAPIKey,
			Model:        fc.GeminiModel,
			Limit:        fc.ResultLimit,
			RadiusMeters: fc.RadiusInitialM,
		})
		if err != nil {
			return nil, nil, err
		}
		finder = f
		closers = append(closers, f.Close)

	case config.FinderDirectory:
		if conn == nil {
			return nil, nil, errors.New("build finder: directory backend needs a database")
		}
		f, err := directory.NewFinder(
			repositories.NewSQLHospitalDirectory(conn, cfg.Database.Driver),
			fc.ResultLimit,
			RadiusSchedule(fc),
		)
		if err != nil {
			return nil, nil, err
		}
		finder = f

	default:
		return nil, nil, fmt.Errorf("build finder: unknown backend %q", fc.Backend)
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable; finder cache will retry per lookup")
		}
		finder = cache.NewRedisFinderCache(finder, rdb, fc.CacheTTL)
		closers = append(closers, rdb.Close)
	}

	log.Info().Str("backend", fc.Backend).Bool("redis_cache", cfg.Redis.Addr != "").Int("limit", fc.ResultLimit).Msg("hospital finder ready")

	return finder, func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}, nil
}

// BuildLocator returns the configured location provider. reporter is
// non-nil only for the device-reported source.
func BuildLocator(cfg config.LocationConfig) (ports.LocationProvider, *location.Reported, error) {
	switch cfg.Source {
	case config.LocationReported:
		r := location.NewReported(cfg.Timeout)
		return r, r, nil
	case config.LocationIPAPI:
		return location.NewIPAPI(cfg.IPAPIBaseURL, cfg.Timeout), nil, nil
	case config.LocationStatic:
		s, err := location.NewStatic(domain.Coordinates{Lat: cfg.Latitude, Lon: cfg.Longitude})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	default:
		return nil, nil, fmt.Errorf("build locator: unknown source %q", cfg.Source)
	}
}

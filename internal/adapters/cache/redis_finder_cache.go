package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/ports"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const finderKeyPrefix = "sos:hospitals:"

// RedisFinderCache wraps a HospitalFinder and caches non-empty results per
// location, rounded to about 11m. Redis failures fall through to the wrapped
// finder.
type RedisFinderCache struct {
	next ports.HospitalFinder
	rdb  redis.Cmdable
	ttl  time.Duration
}

func NewRedisFinderCache(next ports.HospitalFinder, rdb redis.Cmdable, ttl time.Duration) *RedisFinderCache {
	return &RedisFinderCache{next: next, rdb: rdb, ttl: ttl}
}

type cachedHospital struct {
	Name           string   `json:"name"`
	Address        string   `json:"address"`
	Phone          string   `json:"phone"`
	Lat            *float64 `json:"lat,omitempty"`
	Lon            *float64 `json:"lon,omitempty"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

func finderKey(at domain.Coordinates) string {
	return finderKeyPrefix + at.Key()
}

func (c *RedisFinderCache) FindHospitals(ctx context.Context, at domain.Coordinates) ([]domain.Hospital, error) {
	key := finderKey(at)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		hospitals, decodeErr := decodeHospitals(raw)
		if decodeErr == nil {
			log.Debug().Str("key", key).Int("count", len(hospitals)).Msg("finder cache hit")
			return hospitals, nil
		}
		log.Warn().Err(decodeErr).Str("key", key).Msg("finder cache entry unreadable")
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Str("key", key).Msg("finder cache read failed")
	}

	hospitals, err := c.next.FindHospitals(ctx, at)
	if err != nil {
		return nil, err
	}
	if len(hospitals) == 0 {
		return hospitals, nil
	}

	payload, err := encodeHospitals(hospitals)
	if err != nil {
		log.Warn().Err(err).Msg("finder cache encode failed")
		return hospitals, nil
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("finder cache write failed")
	}
	return hospitals, nil
}

func encodeHospitals(hospitals []domain.Hospital) ([]byte, error) {
	out := make([]cachedHospital, 0, len(hospitals))
	for _, h := range hospitals {
		ch := cachedHospital{
			Name:           h.Name,
			Address:        h.Address,
			Phone:          h.Phone,
			DistanceMeters: h.DistanceMeters,
		}
		if h.Location != nil {
			lat, lon := h.Location.Lat, h.Location.Lon
			ch.Lat, ch.Lon = &lat, &lon
		}
		out = append(out, ch)
	}
	return json.Marshal(out)
}

func decodeHospitals(raw []byte) ([]domain.Hospital, error) {
	var cached []cachedHospital
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("decode cached hospitals: %w", err)
	}

	out := make([]domain.Hospital, 0, len(cached))
	for _, ch := range cached {
		h := domain.Hospital{
			Name:           ch.Name,
			Address:        ch.Address,
			Phone:          ch.Phone,
			DistanceMeters: ch.DistanceMeters,
		}
		if ch.Lat != nil && ch.Lon != nil {
			h.Location = &domain.Coordinates{Lat: *ch.Lat, Lon: *ch.Lon}
		}
		out = append(out, h)
	}
	return out, nil
}

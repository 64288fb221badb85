package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/platform/db"
	"sos-dispatch-service/internal/platform/obs"
	"sos-dispatch-service/internal/ports"
	"strings"
	"time"
)

// SQLPlaceCache is a SQL-backed cache of place details keyed by place id.
type SQLPlaceCache struct {
	DB     *sql.DB
	Driver string
	now    func() time.Time
}

func NewSQLPlaceCache(conn *sql.DB, driver string) *SQLPlaceCache {
	return &SQLPlaceCache{DB: conn, Driver: driver, now: time.Now}
}

// Fetch cached details for the given place ids.
func (s *SQLPlaceCache) GetMany(
	ctx context.Context,
	placeIDs []string,
) (_ map[string]ports.PlaceDetails, err error) {
	defer obs.Time(ctx, "place.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("place cache: db is nil")
	}

	seen := map[string]struct{}{}
	args := make([]any, 0, len(placeIDs))
	for _, id := range placeIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}

		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		args = append(args, id)
	}

	if len(args) == 0 {
		return map[string]ports.PlaceDetails{}, nil
	}

	// Only the placeholder structure is interpolated; all values remain parameterized.
	q := db.Rebind(s.Driver, fmt.Sprintf(`
	SELECT
		place_id,
		name,
		address,
		phone,
		lat,
		lon
	FROM place_cache
	WHERE place_id IN (%s);
	`, db.Placeholders(len(args))))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get place cache: query place_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ports.PlaceDetails, len(args))
	for rows.Next() {
		var (
			id       string
			d        ports.PlaceDetails
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&id, &d.Name, &d.Address, &d.Phone, &lat, &lon); err != nil {
			return nil, fmt.Errorf("get place cache: scan rows: %w", err)
		}
		if lat.Valid && lon.Valid {
			d.Location = &domain.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
		}
		out[id] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get place cache: row iteration: %w", err)
	}

	return out, nil
}

// Store place details in the cache, replacing older entries.
func (s *SQLPlaceCache) PutMany(ctx context.Context, details map[string]ports.PlaceDetails) error {
	if s.DB == nil {
		return errors.New("place cache: db is nil")
	}

	if len(details) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert place cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, db.Rebind(s.Driver, `
	INSERT INTO place_cache (place_id, name, address, phone, lat, lon, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (place_id) DO UPDATE
	SET name = excluded.name,
		address = excluded.address,
		phone = excluded.phone,
		lat = excluded.lat,
		lon = excluded.lon,
		updated_at = excluded.updated_at;
	`))
	if err != nil {
		return fmt.Errorf("insert place cache: db prepare: %w", err)
	}
	defer stmt.Close()

	updated := s.now().UnixMilli()
	for id, d := range details {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("insert place cache: empty place id key")
		}

		var lat, lon sql.NullFloat64
		if d.Location != nil {
			lat = sql.NullFloat64{Float64: d.Location.Lat, Valid: true}
			lon = sql.NullFloat64{Float64: d.Location.Lon, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, id, d.Name, d.Address, d.Phone, lat, lon, updated); err != nil {
			return fmt.Errorf("insert place cache place_id=%q: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert place cache commit: %w", err)
	}

	return nil
}

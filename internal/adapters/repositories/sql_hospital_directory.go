package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sos-dispatch-service/internal/platform/db"
	"sos-dispatch-service/internal/platform/obs"
	"sos-dispatch-service/internal/ports"
)

// SQL-backed implementation of the HospitalDirectory port.
type SQLHospitalDirectory struct {
	DB     *sql.DB
	Driver string
}

func NewSQLHospitalDirectory(conn *sql.DB, driver string) *SQLHospitalDirectory {
	return &SQLHospitalDirectory{DB: conn, Driver: driver}
}

func (s *SQLHospitalDirectory) ListWithin(
	ctx context.Context,
	minLat, maxLat, minLon, maxLon float64,
) (_ []ports.DirectoryEntry, err error) {
	defer obs.Time(ctx, "hospitals.ListWithin")(&err)

	if s.DB == nil {
		return nil, errors.New("sql hospital directory: DB is nil")
	}

	query := db.Rebind(s.Driver, `
	SELECT
		id,
		name,
		address,
		phone,
		lat,
		lon
	FROM hospitals
	WHERE lat BETWEEN ? AND ?
	AND lon BETWEEN ? AND ?
	ORDER BY id;
	`)
	rows, err := s.DB.QueryContext(ctx, query, minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, fmt.Errorf("list hospitals: query hospitals table: %w", err)
	}
	defer rows.Close()

	out := make([]ports.DirectoryEntry, 0, 16)
	for rows.Next() {
		var e ports.DirectoryEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Address, &e.Phone, &e.Location.Lat, &e.Location.Lon); err != nil {
			return nil, fmt.Errorf("list hospitals: scan row: %w", err)
		}
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list hospitals: row iteration: %w", err)
	}

	return out, nil
}

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/platform/db"
	"strings"
)

type HospitalSeed struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Phone     string  `json:"phone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SeedHospitalsFromJSON upserts the hospital directory from a JSON array and
// returns how many rows were written.
func SeedHospitalsFromJSON(ctx context.Context, conn *sql.DB, driver, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed hospitals: read %q: %w", jsonPath, err)
	}

	var data []HospitalSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return 0, fmt.Errorf("seed hospitals: parse json: %w", err)
	}

	rows := make([]HospitalSeed, 0, len(data))
	for i, item := range data {
		if item.ID <= 0 {
			return 0, fmt.Errorf("seed hospitals: invalid id at index %d: %d", i+1, item.ID)
		}

		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			return 0, fmt.Errorf("seed hospitals: item at index %d: name cannot be empty", i+1)
		}

		c := domain.Coordinates{Lat: item.Latitude, Lon: item.Longitude}
		if err := c.Validate(); err != nil {
			return 0, fmt.Errorf("seed hospitals: item at index %d: %w", i+1, err)
		}

		item.Address = strings.TrimSpace(item.Address)
		item.Phone = strings.TrimSpace(item.Phone)
		rows = append(rows, item)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed hospitals: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := db.Rebind(driver, `
	INSERT INTO hospitals (id, name, address, phone, lat, lon)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET name = excluded.name,
		address = excluded.address,
		phone = excluded.phone,
		lat = excluded.lat,
		lon = excluded.lon;
	`)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("seed hospitals: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range rows {
		if _, err := stmt.ExecContext(ctx, h.ID, h.Name, h.Address, h.Phone, h.Latitude, h.Longitude); err != nil {
			return 0, fmt.Errorf("seed hospitals: insert id=%d: %w", h.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed hospitals: commit tx: %w", err)
	}

	return len(rows), nil
}

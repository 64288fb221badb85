package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sos-dispatch-service/internal/adapters/repositories"
	"sos-dispatch-service/internal/config"

	"github.com/rs/zerolog/log"
)

// InitAndSeed creates the schema and loads the hospital seed file when one
// exists. A missing seed file leaves the directory as is.
func InitAndSeed(ctx context.Context, conn *sql.DB, cfg config.DatabaseConfig) error {
	if err := repositories.InitSchema(ctx, conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if cfg.SeedPath == "" {
		return nil
	}
	if _, err := os.Stat(cfg.SeedPath); errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", cfg.SeedPath).Msg("hospital seed file not found; directory left as is")
		return nil
	}

	n, err := repositories.SeedHospitalsFromJSON(ctx, conn, cfg.Driver, cfg.SeedPath)
	if err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}
	log.Info().Int("hospitals", n).Str("path", cfg.SeedPath).Msg("hospital directory seeded")
	return nil
}

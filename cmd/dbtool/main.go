package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sos-dispatch-service/internal/adapters/repositories"
	"sos-dispatch-service/internal/config"
	"sos-dispatch-service/internal/platform/db"
	"sos-dispatch-service/internal/platform/logging"
	"time"

	"github.com/rs/zerolog/log"
)

// dbtool initialises the schema and seeds the hospital directory.
func main() {
	configPath := flag.String("config", "", "YAML config file (defaults to $SOS_CONFIG)")
	seedPath := flag.String("seed", "", "hospital seed JSON (defaults to SEED_PATH)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if *seedPath != "" {
		cfg.Database.SeedPath = *seedPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conn, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer conn.Close()

	log.Info().Str("driver", cfg.Database.Driver).Msg("initializing database schema")
	if err := repositories.InitSchema(ctx, conn); err != nil {
		log.Fatal().Err(err).Msg("schema initialization failed")
	}
	log.Info().Msg("schema ready")

	log.Info().Str("path", cfg.Database.SeedPath).Msg("seeding hospital directory")
	n, err := repositories.SeedHospitalsFromJSON(ctx, conn, cfg.Database.Driver, cfg.Database.SeedPath)
	if err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	log.Info().Int("hospitals", n).Msg("seeding complete")
}

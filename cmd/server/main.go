package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sos-dispatch-service/internal/adapters/repositories"
	"sos-dispatch-service/internal/api"
	"sos-dispatch-service/internal/app"
	"sos-dispatch-service/internal/config"
	"sos-dispatch-service/internal/platform/db"
	"sos-dispatch-service/internal/platform/logging"
	"sos-dispatch-service/internal/platform/obs"
	"sos-dispatch-service/internal/services"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// main is the application composition root.
// It wires concrete adapters behind ports and starts the HTTP server.
func main() {
	configPath := flag.String("config", "", "YAML config file (defaults to $SOS_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := obs.InitTracing(ctx, obs.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "sos-dispatch-service",
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer obs.ShutdownWithTimeout(context.Background(), shutdownTracing)

	conn, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Initialize schema and seed the hospital directory on startup for local runs.
	if err := app.InitAndSeed(ctx, conn, cfg.Database); err != nil {
		return err
	}

	finder, closeFinder, err := app.BuildFinder(ctx, cfg, conn)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFinder(); err != nil {
			log.Warn().Err(err).Msg("close finder")
		}
	}()

	locator, reporter, err := app.BuildLocator(cfg.Location)
	if err != nil {
		return err
	}

	collector, err := obs.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	store := repositories.NewSQLSessionStore(conn, cfg.Database.Driver)
	// Database writes run off the transition path; Close flushes them.
	storeQueue := services.NewQueuedObserver(store, 256)
	defer storeQueue.Close()

	orch, err := services.NewOrchestrator(
		services.OrchestratorConfig{
			ContactSeconds: cfg.Session.ContactSeconds,
			TickInterval:   cfg.Session.TickInterval,
		},
		locator, finder,
		services.WithObservers(collector, storeQueue),
	)
	if err != nil {
		return err
	}
	defer orch.Close()

	deps := api.Deps{
		Orchestrator: orch,
		History:      store,
		Metrics:      collector.Handler(),
	}
	if reporter != nil {
		deps.Reporter = reporter
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("finder", cfg.Finder.Backend).Str("location", cfg.Location.Source).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

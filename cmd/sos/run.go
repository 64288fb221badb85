package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sos-dispatch-service/internal/adapters/repositories"
	"sos-dispatch-service/internal/app"
	"sos-dispatch-service/internal/config"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/platform/db"
	"sos-dispatch-service/internal/platform/logging"
	"sos-dispatch-service/internal/ports"
	"sos-dispatch-service/internal/services"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trigger SOS from this terminal",
		Long: "Resolve the current location, look up the nearest hospitals and walk through them " +
			"with a countdown each. Press Enter once help is on the way.",
		RunE: runSOS,
	}

	cmd.Flags().Float64("lat", 0, "Latitude; together with --lon skips location lookup")
	cmd.Flags().Float64("lon", 0, "Longitude; together with --lat skips location lookup")
	cmd.Flags().String("finder", "", "Hospital finder: places, gemini or directory (defaults to HOSPITAL_FINDER)")
	cmd.Flags().Int("contact-seconds", 0, "Countdown per hospital (defaults to CONTACT_SECONDS)")
	cmd.Flags().Duration("tick", 0, "Length of one countdown step (defaults to TICK_INTERVAL)")
	return cmd
}

// loadRunConfig layers the command flags over config.Load.
func loadRunConfig(cmd *cobra.Command) (config.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, err
	}

	if lvl, _ := cmd.Flags().GetString("log"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if f, _ := cmd.Flags().GetString("finder"); f != "" {
		cfg.Finder.Backend = f
	}
	if n, _ := cmd.Flags().GetInt("contact-seconds"); n > 0 {
		cfg.Session.ContactSeconds = n
	}
	if d, _ := cmd.Flags().GetDuration("tick"); d > 0 {
		cfg.Session.TickInterval = d
	}

	// Nothing pushes a location into a terminal session.
	if cfg.Location.Source == config.LocationReported {
		cfg.Location.Source = config.LocationIPAPI
	}

	latSet, lonSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
	if latSet != lonSet {
		return cfg, errors.New("--lat and --lon must be given together")
	}
	if latSet {
		cfg.Location.Source = config.LocationStatic
		cfg.Location.Latitude, _ = cmd.Flags().GetFloat64("lat")
		cfg.Location.Longitude, _ = cmd.Flags().GetFloat64("lon")
	}

	return cfg, cfg.Validate()
}

func runSOS(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	logging.SetupWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// The gemini backend needs no directory, but sessions are still recorded
	// whenever a database is reachable.
	var conn *sql.DB
	if c, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.URL); err != nil {
		if cfg.Finder.Backend != config.FinderGemini {
			return err
		}
		log.Warn().Err(err).Msg("database unavailable; session will not be recorded")
	} else {
		conn = c
		defer conn.Close()
		if err := app.InitAndSeed(ctx, conn, cfg.Database); err != nil {
			return err
		}
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

	locator, _, err := app.BuildLocator(cfg.Location)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printer := newTerminalPrinter(out)
	observers := []ports.SessionObserver{printer}
	if conn != nil {
		// Closed after the orchestrator, so every write lands before conn closes.
		storeQueue := services.NewQueuedObserver(repositories.NewSQLSessionStore(conn, cfg.Database.Driver), 256)
		defer storeQueue.Close()
		observers = append(observers, storeQueue)
	}

	orch, err := services.NewOrchestrator(
		services.OrchestratorConfig{
			ContactSeconds: cfg.Session.ContactSeconds,
			TickInterval:   cfg.Session.TickInterval,
		},
		locator, finder,
		services.WithObservers(observers...),
	)
	if err != nil {
		return err
	}
	defer orch.Close()

	fmt.Fprintln(out, "SOS triggered. Getting your location...")
	if err := orch.Start(ctx); err != nil {
		var serr *domain.SessionError
		if errors.As(err, &serr) {
			return fmt.Errorf("sos: %s", serr.Message())
		}
		return err
	}

	go watchForHelp(cmd.InOrStdin(), orch)

	select {
	case snap := <-printer.done:
		printSummary(out, snap)
		return nil
	case <-ctx.Done():
		orch.Reset()
		fmt.Fprintln(out, "\nSOS cancelled.")
		return nil
	}
}

// watchForHelp stops the session on the first line read from in. EOF leaves
// the countdown running.
func watchForHelp(in io.Reader, orch *services.Orchestrator) {
	if !bufio.NewScanner(in).Scan() {
		return
	}
	if err := orch.Stop(); err != nil {
		log.Debug().Err(err).Msg("stop ignored")
	}
}

func printSummary(out io.Writer, snap domain.Snapshot) {
	if snap.Completion == domain.CompletedHelpReceived {
		fmt.Fprintf(out, "\nHelp received. %d hospital(s) contacted.\n", len(snap.Contacted))
		return
	}
	fmt.Fprintf(out, "\nAll %d hospital(s) contacted. If you still need help, call your local emergency number.\n", len(snap.Contacted))
}

// terminalPrinter renders session events as plain text and signals done on
// completion.
type terminalPrinter struct {
	out  io.Writer
	done chan domain.Snapshot
}

func newTerminalPrinter(out io.Writer) *terminalPrinter {
	return &terminalPrinter{out: out, done: make(chan domain.Snapshot, 1)}
}

func (p *terminalPrinter) OnEvent(ev domain.Event) {
	snap := ev.Snapshot
	switch ev.Kind {
	case domain.EventLocationResolved:
		if snap.Location != nil {
			fmt.Fprintf(p.out, "Location: %s. Finding hospitals...\n", snap.Location)
		}
	case domain.EventContactStarted:
		if snap.CurrentIndex < 0 || snap.CurrentIndex >= len(snap.Contacted) {
			return
		}
		h := snap.Contacted[snap.CurrentIndex]
		fmt.Fprintf(p.out, "\n[%d/%d] Contacting %s\n", snap.CurrentIndex+1, snap.CandidateCount, h.Name)
		if h.Address != "" {
			fmt.Fprintf(p.out, "  Address:    %s\n", h.Address)
		}
		if h.Phone != "" {
			fmt.Fprintf(p.out, "  Phone:      %s\n", h.Phone)
		}
		if km := h.DistanceKm(); km != nil {
			fmt.Fprintf(p.out, "  Distance:   %.1f km\n", *km)
		}
		if url := h.DirectionsURL(); url != "" {
			fmt.Fprintf(p.out, "  Directions: %s\n", url)
		}
		fmt.Fprintf(p.out, "  Moving on in %ds. Press Enter once help is on the way.\n", snap.RemainingSeconds)
	case domain.EventTick:
		if snap.RemainingSeconds > 0 && (snap.RemainingSeconds%10 == 0 || snap.RemainingSeconds <= 3) {
			fmt.Fprintf(p.out, "  %ds left for %s\n", snap.RemainingSeconds, snap.CurrentHospital)
		}
	case domain.EventCompleted:
		select {
		case p.done <- snap:
		default:
		}
	}
}

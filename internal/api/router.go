package api

import (
	"net/http"
	"sos-dispatch-service/internal/api/handlers"
	"sos-dispatch-service/internal/ports"
)

type Deps struct {
	Orchestrator handlers.SOSController
	// Nil when the server resolves the location itself.
	Reporter handlers.LocationReporter
	History  ports.SessionHistory
	// Optional Prometheus handler for /metrics.
	Metrics http.Handler
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	sos := &handlers.SOSHandler{Orchestrator: deps.Orchestrator, Reporter: deps.Reporter}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/sos", sos.Session)
	mux.HandleFunc("/sos/location", sos.Location)
	mux.HandleFunc("/sos/stop", sos.Stop)
	mux.HandleFunc("/sos/reset", sos.Reset)

	if deps.History != nil {
		sessions := &handlers.SessionsHandler{History: deps.History}
		mux.HandleFunc("/sessions", sessions.List)
	}
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}

	return requestIDMiddleware(loggingMiddleware(mux))
}

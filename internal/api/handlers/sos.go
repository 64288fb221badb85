package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sos-dispatch-service/internal/api/dto"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/services"

	"github.com/rs/zerolog/log"
)

// SOSController is the slice of the orchestrator the HTTP layer drives.
type SOSController interface {
	Launch(ctx context.Context) (domain.Snapshot, <-chan error, error)
	Stop() error
	Reset()
	Snapshot() domain.Snapshot
}

// LocationReporter accepts device-pushed location fixes.
type LocationReporter interface {
	Report(c domain.Coordinates) error
	ReportFailure(err error)
	Drain()
}

// SOSHandler exposes the SOS session lifecycle. Reporter is nil when the
// server resolves the location itself.
type SOSHandler struct {
	Orchestrator SOSController
	Reporter     LocationReporter
}

// Session serves GET (current snapshot) and POST (trigger SOS) on /sos.
func (h *SOSHandler) Session(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, r, http.StatusOK, dto.NewSnapshotResponse(h.Orchestrator.Snapshot()))
	case http.MethodPost:
		h.start(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *SOSHandler) start(w http.ResponseWriter, r *http.Request) {
	var req dto.LocationReport
	err := decodeBody(r, &req)
	hasReport := err == nil
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var fix locationFix
	if hasReport {
		if h.Reporter == nil {
			writeError(w, r, http.StatusBadRequest, "this server resolves location itself; send an empty body")
			return
		}
		if fix, err = parseReport(req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	// Discovery outlives the request; keep its values for logging only.
	snap, done, err := h.Orchestrator.Launch(context.WithoutCancel(r.Context()))
	if err != nil {
		h.writeTriggerError(w, r, err)
		return
	}

	// The mailbox is only touched once this request owns the new session, so
	// a rejected trigger cannot feed a session that is already waiting.
	if h.Reporter != nil {
		h.Reporter.Drain()
		if hasReport {
			h.deliver(fix)
		}
	}

	go func() {
		if err := <-done; err != nil {
			log.Info().Err(err).Str("session_id", snap.SessionID).Msg("sos discovery ended without contacts")
		}
	}()

	writeJSON(w, r, http.StatusAccepted, dto.NewSnapshotResponse(snap))
}

// Location accepts a position fix for a session waiting on one.
func (h *SOSHandler) Location(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	if h.Reporter == nil {
		writeError(w, r, http.StatusConflict, "location is resolved by the server")
		return
	}

	var req dto.LocationReport
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	fix, err := parseReport(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if snap := h.Orchestrator.Snapshot(); snap.Status != domain.StatusGettingLocation {
		writeError(w, r, http.StatusConflict, fmt.Sprintf("no session is waiting for a location (status %s)", snap.Status))
		return
	}

	h.deliver(fix)

	writeJSON(w, r, http.StatusAccepted, dto.NewSnapshotResponse(h.Orchestrator.Snapshot()))
}

// locationFix is a validated location report: coordinates or a failure.
type locationFix struct {
	coords  domain.Coordinates
	failure error
}

func parseReport(req dto.LocationReport) (locationFix, error) {
	switch req.LocationError {
	case "":
	case dto.LocationErrorPermissionDenied:
		return locationFix{failure: domain.ErrLocationPermissionDenied}, nil
	case dto.LocationErrorPositionUnavailable:
		return locationFix{failure: domain.ErrLocationUnavailable}, nil
	default:
		return locationFix{}, fmt.Errorf("location_error must be %q or %q", dto.LocationErrorPermissionDenied, dto.LocationErrorPositionUnavailable)
	}

	if req.Latitude == nil || req.Longitude == nil {
		return locationFix{}, errors.New("latitude and longitude are required")
	}
	c := domain.Coordinates{Lat: *req.Latitude, Lon: *req.Longitude}
	if err := c.Validate(); err != nil {
		return locationFix{}, errors.New("latitude or longitude out of range")
	}
	return locationFix{coords: c}, nil
}

func (h *SOSHandler) deliver(fix locationFix) {
	if fix.failure != nil {
		h.Reporter.ReportFailure(fix.failure)
		return
	}
	if err := h.Reporter.Report(fix.coords); err != nil {
		log.Warn().Err(err).Msg("validated location rejected by reporter")
	}
}

// Stop reports that help was received.
func (h *SOSHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.Orchestrator.Stop(); err != nil {
		h.writeTriggerError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewSnapshotResponse(h.Orchestrator.Snapshot()))
}

// Reset discards the current session from any state.
func (h *SOSHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	h.Orchestrator.Reset()
	if h.Reporter != nil {
		h.Reporter.Drain()
	}
	writeJSON(w, r, http.StatusOK, dto.NewSnapshotResponse(h.Orchestrator.Snapshot()))
}

func (h *SOSHandler) writeTriggerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, fmt.Sprintf("not allowed while %s", h.Orchestrator.Snapshot().Status))
	case errors.Is(err, services.ErrClosed):
		writeError(w, r, http.StatusServiceUnavailable, "shutting down")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("sos trigger failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

package handlers

import (
	"net/http"
	"sos-dispatch-service/internal/api/dto"
	"sos-dispatch-service/internal/ports"
	"strconv"

	"github.com/rs/zerolog/log"
)

const (
	defaultSessionLimit = 20
	maxSessionLimit     = 100
)

// SessionsHandler exposes persisted session history.
type SessionsHandler struct {
	History ports.SessionHistory
}

func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	limit := defaultSessionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSessionLimit {
			writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	records, err := h.History.ListSessions(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("list sessions failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListSessionsResponse{
		Sessions: make([]dto.SessionRecordResponse, 0, len(records)),
	}
	for _, rec := range records {
		res.Sessions = append(res.Sessions, dto.SessionRecordResponse{
			ID:         rec.ID,
			Status:     string(rec.Status),
			Latitude:   rec.Latitude,
			Longitude:  rec.Longitude,
			Contacted:  rec.Contacted,
			ErrorKind:  string(rec.ErrorKind),
			Completion: string(rec.Completion),
			StartedAt:  rec.StartedAt,
			EndedAt:    rec.EndedAt,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

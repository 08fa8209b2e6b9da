package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/interviewlab/backend/internal/session"
)

type createSessionRequest struct {
	OwnerID     string `json:"ownerId"`
	Domain      string `json:"domain"`
	Difficulty  string `json:"difficulty"`
	DurationMin int    `json:"durationMin"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid json", nil)
		return
	}

	if req.OwnerID == "" || req.Domain == "" || req.Difficulty == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELD", "ownerId, domain and difficulty are required", nil)
		return
	}
	if req.DurationMin <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_DURATION", "durationMin must be positive", nil)
		return
	}

	sess := session.New(req.OwnerID, req.Domain, req.Difficulty, req.DurationMin)
	if err := h.repo.Create(r.Context(), sess); err != nil {
		h.log.Error().Err(err).Msg("session create failed")
		writeError(w, http.StatusInternalServerError, "CREATE_FAILED", "could not persist session", nil)
		return
	}

	h.log.Info().Str("session", sess.ID).Str("owner", sess.OwnerID).Msg("session created")
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.repo.FindByID(r.Context(), id)
	if errors.Is(err, session.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "no session with that id", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "LOOKUP_FAILED", err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "MISSING_OWNER", "owner query parameter is required", nil)
		return
	}

	sessions, err := h.repo.ListByOwner(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "LIST_FAILED", err.Error(), nil)
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}

	writeJSON(w, http.StatusOK, sessions)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid json", nil)
		return
	}

	requested, ok := session.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "UNKNOWN_STATUS", "status must be CREATED, IN_PROGRESS or COMPLETED", map[string]any{"status": req.Status})
		return
	}

	sess, err := h.lifecycle.RequestTransition(r.Context(), id, requested)
	if err != nil {
		var invalid *session.InvalidTransitionError
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			h.metrics.TransitionsTotal.WithLabelValues(requested.String(), "not_found").Inc()
			writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "no session with that id", nil)
		case errors.As(err, &invalid):
			h.metrics.TransitionsTotal.WithLabelValues(requested.String(), "rejected").Inc()
			allowed := make([]string, len(invalid.Allowed))
			for i, s := range invalid.Allowed {
				allowed[i] = s.String()
			}
			writeError(w, http.StatusConflict, "INVALID_TRANSITION", invalid.Error(), map[string]any{
				"current": invalid.Current.String(),
				"allowed": allowed,
			})
		default:
			h.log.Error().Err(err).Str("session", id).Msg("transition failed")
			writeError(w, http.StatusInternalServerError, "TRANSITION_FAILED", err.Error(), nil)
		}
		return
	}

	h.metrics.TransitionsTotal.WithLabelValues(requested.String(), "applied").Inc()
	h.log.Info().Str("session", sess.ID).Str("status", sess.Status.String()).Msg("session transitioned")
	writeJSON(w, http.StatusOK, sess)
}

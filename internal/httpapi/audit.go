package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rentvideo/internal/apperr"
	"rentvideo/internal/database"
	"rentvideo/internal/eventlog"
	"rentvideo/internal/httpx"
)

type auditHandler struct {
	db     *database.DB
	events *eventlog.Log
}

// HandleHistory returns the recorded events of one video, user or rental.
func (h *auditHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, fmt.Errorf("%w: invalid aggregate ID", apperr.ErrInvalidInput))
		return
	}

	history, err := h.events.Load(r.Context(), h.db, id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if len(history) == 0 {
		httpx.WriteError(w, fmt.Errorf("%w: no events for %s", apperr.ErrNotFound, id))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, history)
}

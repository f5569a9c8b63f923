// internal/catalog/handler.go
package catalog

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rentvideo/internal/apperr"
	"rentvideo/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the read endpoints. Write endpoints are mounted separately by
// the router so they can sit behind the admin check.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Get("/{id}", h.HandleGet)
}

// AdminRoutes mounts the endpoints that change the catalog.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/", h.HandleCreate)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{Title: q.Get("title"), Genre: q.Get("genre")}
	if raw := q.Get("availableOnly"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(w, fmt.Errorf("%w: availableOnly must be a boolean", apperr.ErrInvalidInput))
			return
		}
		filter.AvailableOnly = b
	}

	videos, err := h.service.ListVideos(r.Context(), filter)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, videos)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := videoID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	video, err := h.service.GetVideo(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, video)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in VideoInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, err)
		return
	}

	video, err := h.service.AddVideo(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, video)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := videoID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var in VideoInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, err)
		return
	}

	video, err := h.service.UpdateVideo(r.Context(), id, in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, video)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := videoID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.service.RemoveVideo(r.Context(), id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: "Video deleted successfully"})
}

func videoID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid video ID", apperr.ErrInvalidInput)
	}
	return id, nil
}

// internal/account/handler.go
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rentvideo/internal/apperr"
	"rentvideo/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the profile endpoints of the current user.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/me", h.HandleGetMe)
	r.Put("/me", h.HandleUpdateMe)
}

// AdminRoutes mounts the user listing.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/", h.HandleList)
}

func (h *Handler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.ErrUnauthorized)
		return
	}

	user, err := h.service.GetByUsername(r.Context(), p.Username)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.ErrUnauthorized)
		return
	}

	var in UpdateProfileInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), p.Username, in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

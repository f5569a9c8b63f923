// internal/rental/handler.go
package rental

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rentvideo/internal/account"
	"rentvideo/internal/apperr"
	"rentvideo/internal/httpx"
	"rentvideo/internal/validation"
)

// SweepResponse reports how many rentals a sweep marked overdue.
type SweepResponse struct {
	AsOf   Date `json:"as_of"`
	Marked int  `json:"marked"`
}

type Handler struct {
	service   Service
	validator *validation.Validator
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, validator: validation.New()}
}

// Routes mounts the endpoints available to every signed-in user.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.HandleCheckout)
	r.Get("/my-rentals", h.HandleMyRentals)
	r.Put("/{id}/return", h.HandleReturn)
}

// AdminRoutes mounts the ledger-wide endpoints.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/sweep-overdue", h.HandleSweepOverdue)
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	p, ok := account.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.ErrUnauthorized)
		return
	}

	var req CheckoutRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	rent, err := h.service.Checkout(r.Context(), p, req.VideoID, req.RentalDays)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rent)
}

func (h *Handler) HandleMyRentals(w http.ResponseWriter, r *http.Request) {
	p, ok := account.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.ErrUnauthorized)
		return
	}

	rentals, err := h.service.ListForUser(r.Context(), p)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rentals)
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	p, ok := account.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, fmt.Errorf("%w: invalid rental ID", apperr.ErrInvalidInput))
		return
	}

	rent, err := h.service.Return(r.Context(), p, id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rent)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		rentals []*Rental
		err     error
	)
	switch {
	case q.Get("status") != "":
		status, ok := ParseStatus(q.Get("status"))
		if !ok {
			httpx.WriteError(w, fmt.Errorf("%w: unknown rental status %q", apperr.ErrInvalidInput, q.Get("status")))
			return
		}
		rentals, err = h.service.ListByStatus(r.Context(), status)
	case q.Get("activeOnly") != "":
		activeOnly, perr := strconv.ParseBool(q.Get("activeOnly"))
		if perr != nil {
			httpx.WriteError(w, fmt.Errorf("%w: activeOnly must be a boolean", apperr.ErrInvalidInput))
			return
		}
		if activeOnly {
			rentals, err = h.service.ListByStatus(r.Context(), StatusActive)
		} else {
			rentals, err = h.service.ListAll(r.Context())
		}
	default:
		rentals, err = h.service.ListAll(r.Context())
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rentals)
}

func (h *Handler) HandleSweepOverdue(w http.ResponseWriter, r *http.Request) {
	asOf := h.service.Today()
	if raw := r.URL.Query().Get("asOf"); raw != "" {
		d, err := ParseDate(raw)
		if err != nil {
			httpx.WriteError(w, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
			return
		}
		asOf = d
	}

	marked, err := h.service.MarkOverdue(r.Context(), asOf)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, SweepResponse{AsOf: asOf, Marked: marked})
}

// internal/auth/handler.go
package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rentvideo/internal/account"
	"rentvideo/internal/httpx"
)

// LoginRequest is the body of a login call.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	Username    string       `json:"username"`
	Role        account.Role `json:"role"`
}

type Handler struct {
	accounts account.Service
	tokens   *Tokens
}

func NewHandler(accounts account.Service, tokens *Tokens) *Handler {
	return &Handler{accounts: accounts, tokens: tokens}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in account.RegisterInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	token, expires, err := h.tokens.Issue(user)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expires,
		Username:    user.Username,
		Role:        user.Role,
	})
}

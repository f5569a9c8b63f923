package auth

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"rentvideo/internal/account"
	"rentvideo/internal/apperr"
	"rentvideo/internal/httpx"
)

// Authenticate rejects requests without a valid bearer token and stores the
// token's principal in the request context.
func Authenticate(tokens *Tokens, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := tokens.Parse(r.Header.Get("Authorization"))
			if err != nil {
				logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
				httpx.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(account.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole lets through only principals holding role. It must run after
// Authenticate.
func RequireRole(role account.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := account.PrincipalFromContext(r.Context())
			if !ok {
				httpx.WriteError(w, apperr.ErrUnauthorized)
				return
			}
			if p.Role != role {
				httpx.WriteError(w, fmt.Errorf("%w: %s role required", apperr.ErrForbidden, role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

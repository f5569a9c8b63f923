package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rentvideo/internal/account"
	"rentvideo/internal/apperr"
)

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	token, expires, err := tokens.Issue(&account.User{Username: "alice", Role: account.RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	p, err := tokens.Parse("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, account.RoleAdmin, p.Role)

	p, err = tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
}

func TestParseRejects(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	other := NewTokens("other-secret", time.Hour)

	forged, _, err := other.Issue(&account.User{Username: "mallory", Role: account.RoleAdmin})
	require.NoError(t, err)

	expired := NewTokens("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(&account.User{Username: "alice", Role: account.RoleUser})
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"empty":        "",
		"bearer only":  "Bearer ",
		"garbage":      "Bearer not.a.token",
		"wrong secret": "Bearer " + forged,
		"expired":      "Bearer " + old,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Parse(raw)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}
}

func TestMiddleware(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	userToken, _, err := tokens.Issue(&account.User{Username: "alice", Role: account.RoleUser})
	require.NoError(t, err)
	adminToken, _, err := tokens.Issue(&account.User{Username: "root", Role: account.RoleAdmin})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(Authenticate(tokens, zaptest.NewLogger(t)))
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		p, _ := account.PrincipalFromContext(r.Context())
		_, _ = w.Write([]byte(p.Username))
	})
	r.With(RequireRole(account.RoleAdmin)).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	do := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do("/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do("/whoami", userToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())

	rec = do("/admin", userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do("/admin", adminToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

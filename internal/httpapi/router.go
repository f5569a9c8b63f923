// Package httpapi assembles the REST surface.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"rentvideo/internal/account"
	"rentvideo/internal/auth"
	"rentvideo/internal/catalog"
	"rentvideo/internal/database"
	"rentvideo/internal/eventlog"
	"rentvideo/internal/httpx"
	"rentvideo/internal/rental"
)

// Deps are the services the router exposes.
type Deps struct {
	DB       *database.DB
	Tokens   *auth.Tokens
	Accounts account.Service
	Catalog  catalog.Service
	Rentals  rental.Service
	Events   *eventlog.Log
	Logger   *zap.Logger
}

// NewRouter returns the HTTP handler for the whole API.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger.Named("http")

	authHandler := auth.NewHandler(d.Accounts, d.Tokens)
	catalogHandler := catalog.NewHandler(d.Catalog)
	accountHandler := account.NewHandler(d.Accounts)
	rentalHandler := rental.NewHandler(d.Rentals)
	auditHandler := &auditHandler{db: d.DB, events: d.Events}

	adminOnly := auth.RequireRole(account.RoleAdmin)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorResponse{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusMethodNotAllowed, httpx.ErrorResponse{Error: "method not allowed"})
	})

	r.Get("/healthz", healthz(d.DB))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", authHandler.Routes)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(d.Tokens, logger))

			r.Route("/videos", func(r chi.Router) {
				catalogHandler.Routes(r)
				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					catalogHandler.AdminRoutes(r)
				})
			})

			r.Route("/rentals", func(r chi.Router) {
				rentalHandler.Routes(r)
				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					rentalHandler.AdminRoutes(r)
				})
			})

			r.Route("/users", func(r chi.Router) {
				accountHandler.Routes(r)
				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					accountHandler.AdminRoutes(r)
				})
			})

			r.With(adminOnly).Get("/audit/{id}", auditHandler.HandleHistory)
		})
	})

	return r
}

func healthz(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, httpx.ErrorResponse{Error: "database unavailable"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
				zap.String("req_id", middleware.GetReqID(r.Context())),
				zap.String("ip", r.RemoteAddr),
			)
		})
	}
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"casefile/internal/auth"
	"casefile/internal/handlers"
	"casefile/internal/middleware"
)

// Handlers bundles everything RegisterRoutes wires up.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Recovery  *handlers.RecoveryHandler
	Accounts  *handlers.AccountHandler
	Criminals *handlers.CriminalHandler
	Imports   *handlers.ImportHandler
}

// Options tunes the route-level middleware. Zero values fall back to the
// production defaults.
type Options struct {
	AuthLimit RateLimitOverride
	UserLimit *middleware.AuthenticatedRateLimitConfig
}

// RateLimitOverride replaces the public-endpoint limit when set.
type RateLimitOverride struct {
	RequestsPerMinute int
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, authMW *auth.Middleware, opts ...Options) {
	authLimit := middleware.DefaultAuthRateLimit()
	userLimit := middleware.DefaultAuthenticatedRateLimit()
	if len(opts) > 0 {
		if opts[0].AuthLimit.RequestsPerMinute > 0 {
			authLimit.RequestsPerMinute = opts[0].AuthLimit.RequestsPerMinute
		}
		if opts[0].UserLimit != nil {
			userLimit = *opts[0].UserLimit
		}
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public routes - no authentication required. Login, refresh and the
	// recovery flow all share the strict per-IP limit.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(authLimit))

		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/refresh", h.Auth.Refresh)

		r.Post("/auth/recovery/identify", h.Recovery.Identify)
		r.Post("/auth/recovery/challenge", h.Recovery.Challenge)
		r.Post("/auth/recovery/reset", h.Recovery.Reset)
	})

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(authMW.Authenticate)

		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/auth/check-login", h.Auth.CheckLogin)

		// The two post-login gates
		r.Post("/accounts/force-reset", h.Accounts.ForceReset)
		r.Post("/accounts/security-question", h.Accounts.SecurityQuestion)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByUserID(userLimit, "read"))
			r.Get("/criminals", h.Criminals.List)
			r.Get("/criminals/search", h.Criminals.Search)
			r.Get("/criminals/category/{category}", h.Criminals.ByClass)
			r.Get("/criminals/{id}", h.Criminals.Get)
		})

		r.With(middleware.RateLimitByUserID(userLimit, "write")).
			Post("/criminals", h.Criminals.Add)

		// Staff-only routes
		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireStaff)
			r.Use(middleware.RateLimitByUserID(userLimit, "admin"))

			r.Post("/accounts", h.Accounts.Create)
			r.Post("/imports/criminals", h.Imports.Criminals)
			r.Post("/imports/users", h.Imports.Users)
		})
	})
}

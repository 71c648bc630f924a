// Package router sets up all HTTP routes and middleware chains for the
// Boxden API. Routes are grouped under /api/v1 with a shared
// authenticated stack.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"boxden/internal/handlers"
	"boxden/internal/middleware"
	"boxden/internal/session"
)

// Handlers bundles the handler groups the router wires up.
type Handlers struct {
	Auth       *handlers.Auth
	Workspaces *handlers.Workspaces
	Locations  *handlers.Locations
	Boxes      *handlers.Boxes
	QRCodes    *handlers.QRCodes
	Export     *handlers.Export
	Account    *handlers.Account
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessionStore *session.Store, h Handlers) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.LoadSession(sessionStore))

	// Health check — no auth.
	r.Get("/health", healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		// Credential endpoints — rate-limited, no session required.
		r.Group(func(r chi.Router) {
			loginLimiter := middleware.NewRateLimiter(10, time.Minute)
			r.Use(loginLimiter.Middleware)
			r.Post("/auth/signup", h.Auth.Signup)
			r.Post("/auth/login", h.Auth.Login)
		})

		// 2FA — requires auth but NOT completed 2FA.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/auth/logout", h.Auth.Logout)
			r.Post("/auth/2fa/setup", h.Auth.TwoFASetup)
			r.Post("/auth/2fa/verify", h.Auth.TwoFAVerify)
		})

		// Authenticated + 2FA-verified API.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)

			r.Get("/auth/me", h.Auth.Me)

			r.Route("/workspaces", func(r chi.Router) {
				r.Post("/", h.Workspaces.Create)
				r.Get("/", h.Workspaces.List)
				r.Get("/{id}", h.Workspaces.Get)
				r.Delete("/{id}", h.Workspaces.Delete)
				r.Get("/{id}/export", h.Export.Boxes)

				r.Route("/{id}/members", func(r chi.Router) {
					r.Get("/", h.Workspaces.Members)
					r.Post("/", h.Workspaces.AddMember)
					r.Patch("/{userID}", h.Workspaces.SetMemberRole)
					r.Delete("/{userID}", h.Workspaces.RemoveMember)
				})
			})

			r.Route("/locations", func(r chi.Router) {
				r.Post("/", h.Locations.Create)
				r.Get("/", h.Locations.List)
				r.Get("/{id}", h.Locations.Get)
				r.Patch("/{id}", h.Locations.Update)
				r.Delete("/{id}", h.Locations.Delete)
			})

			r.Route("/boxes", func(r chi.Router) {
				r.Post("/", h.Boxes.Create)
				r.Get("/", h.Boxes.Search)
				r.Get("/{id}", h.Boxes.Get)
				r.Patch("/{id}", h.Boxes.Update)
				r.Delete("/{id}", h.Boxes.Delete)
				r.Put("/{id}/qr-code", h.Boxes.AssignQR)
				r.Delete("/{id}/qr-code", h.Boxes.UnassignQR)
				r.Post("/{id}/photo", h.Boxes.UploadPhoto)
			})

			r.Route("/qr-codes", func(r chi.Router) {
				r.Post("/", h.QRCodes.CreateBatch)
				r.Get("/", h.QRCodes.List)
				r.Get("/{id}", h.QRCodes.Get)
				r.Get("/{id}/image", h.QRCodes.Image)
				r.Patch("/{id}", h.QRCodes.Update)
			})

			r.Delete("/account", h.Account.Delete)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Package routes wires every HTTP endpoint to its handler, wrapping each
// with metrics instrumentation and, where needed, authentication.
package routes

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/traveldiary/backend/internal/config"
	"github.com/traveldiary/backend/internal/handlers"
	"github.com/traveldiary/backend/internal/middleware"
	"github.com/traveldiary/backend/internal/service"
)

// Handlers bundles the handler set SetupRoutes registers.
type Handlers struct {
	Auth       *handlers.AuthHandler
	GoogleAuth *handlers.GoogleAuthHandler
	Trips      *handlers.TripsHandler
	Invites    *handlers.InvitesHandler
	Shares     *handlers.SharesHandler
	Health     *handlers.HealthHandler
}

// SetupRoutes configures all application routes on the given mux
func SetupRoutes(mux *http.ServeMux, h Handlers, svc *service.Service, cfg *config.Config) {
	auth := func(route string, fn http.HandlerFunc) http.HandlerFunc {
		return middleware.Instrument(route, middleware.AuthMiddleware(fn, svc, &cfg.JWT))
	}
	open := func(route string, fn http.HandlerFunc) http.HandlerFunc {
		return middleware.Instrument(route, fn)
	}

	// Health and metrics
	mux.HandleFunc("/healthz", h.Health.Health)
	mux.HandleFunc("/livez", h.Health.Live)
	mux.HandleFunc("/readyz", h.Health.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// Authentication
	mux.HandleFunc("/api/auth/register", open("/api/auth/register", h.Auth.Register))
	mux.HandleFunc("/api/auth/register-with-invite", open("/api/auth/register-with-invite", h.Auth.RegisterWithInvite))
	mux.HandleFunc("/api/auth/login", open("/api/auth/login", h.Auth.Login))
	mux.HandleFunc("/api/auth/logout", auth("/api/auth/logout", h.Auth.Logout))
	mux.HandleFunc("/api/auth/me", auth("/api/auth/me", h.Auth.Me))
	mux.HandleFunc("/api/auth/google/login", open("/api/auth/google/login", h.GoogleAuth.GoogleLogin))
	mux.HandleFunc("/api/auth/google/callback", open("/api/auth/google/callback", h.GoogleAuth.GoogleCallback))

	// Trips and their sub-resources share the /api/trips/ prefix; dispatch
	// picks the handler by the second path segment.
	tripDispatch := func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/trips"), "/")
		parts := strings.Split(rest, "/")
		if len(parts) >= 2 {
			switch parts[1] {
			case "invite", "invite-link":
				h.Invites.TripInvites(w, r)
				return
			case "share":
				h.Shares.TripShares(w, r)
				return
			}
		}
		h.Trips.Trips(w, r)
	}
	mux.HandleFunc("/api/trips", auth("/api/trips", tripDispatch))
	mux.HandleFunc("/api/trips/", auth("/api/trips/{id}", tripDispatch))

	// Invitations: details are public, accept requires auth, respond binds
	// the account when one is present.
	mux.HandleFunc("/api/invitations/", middleware.Instrument("/api/invitations/{token}",
		func(w http.ResponseWriter, r *http.Request) {
			rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/invitations"), "/")
			if strings.HasSuffix(rest, "/accept") {
				middleware.AuthMiddleware(h.Invites.Invitations, svc, &cfg.JWT)(w, r)
				return
			}
			middleware.OptionalAuthMiddleware(h.Invites.Invitations, svc, &cfg.JWT)(w, r)
		}))

	// Shared trips are public by design
	mux.HandleFunc("/api/shared/", open("/api/shared/{token}", h.Shares.SharedTrip))

	// Root route
	mux.HandleFunc("/", rootHandler)
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Travel Diary backend is running."))
}

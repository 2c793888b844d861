package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ogglobi/audiolox/internal/auth"
)

// NewRouter creates and returns the admin HTTP router wired to h and
// guarded by authSvc (spec §1: thin transport glue over the core).
func NewRouter(h *Handlers, authSvc *auth.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	// Auth routes (no auth required).
	r.Group(func(r chi.Router) {
		r.Get("/auth/login", h.loginPage)
		r.Post("/auth/login", h.loginPost)
	})

	// API routes (auth required).
	r.Group(func(r chi.Router) {
		r.Use(authSvc.Middleware)

		r.Get("/api/zones", h.getZones)

		// Zone-scoped routes additionally check the caller's per-zone
		// access scope (auth.User.Zones), so a shared household can hand
		// out keys that only reach some zones.
		r.Group(func(r chi.Router) {
			r.Use(authSvc.RequireZone)

			r.Get("/api/zones/{zid}", h.getZone)
			r.Post("/api/zones/{zid}/play", h.playZone)
			r.Post("/api/zones/{zid}/command", h.commandZone)

			r.Get("/api/zones/{zid}/favorites", h.getFavorites)
			r.Put("/api/zones/{zid}/favorites", h.setFavorites)
			r.Get("/api/zones/{zid}/recents", h.getRecents)
		})

		r.Get("/api/info", h.getInfo)

		r.Get("/api/ws", h.hub.ServeWS)
	})

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, api-key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

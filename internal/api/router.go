package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", s.handleHealth)

		// Last-cycle snapshot
		r.Get("/status", s.handleStatus)
		r.Get("/gates", s.handleGates)

		// Global overrides
		r.Put("/mode", s.handleSetMode)
		r.Put("/profile", s.handleSetProfile)

		// Per-room status and overrides
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", s.handleListRooms)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRoom)
				r.Put("/overrides", s.handleSetRoomOverrides)
				r.Delete("/overrides", s.handleClearRoomOverrides)
			})
		})

		// Cycle and command history
		r.Route("/cycles", func(r chi.Router) {
			r.Get("/", s.handleListCycles)
			r.Get("/{id}/commands", s.handleListCycleCommands)
		})
		r.Get("/devices/{device}/history", s.handleDeviceHistory)

		// Zones configuration reload
		r.Post("/config/reload", s.handleReloadZones)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

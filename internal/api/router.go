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
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// WebSocket upgrade cannot carry an Authorization header from a
		// browser; auth is via single-use ticket, validated in the handler.
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication - user must be logged in to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Controller status
			r.Get("/status", s.handleStatus)

			// Run endpoints
			r.Route("/runs", func(r chi.Router) {
				r.Get("/", s.handleListRuns)
				r.Post("/", s.handleExecuteRun)
			})
			r.Post("/prepare", s.handlePrepare)
			r.Post("/abort", s.handleAbort)

			// Manual output endpoints
			r.Route("/outputs", func(r chi.Router) {
				r.Get("/", s.handleGetOutputs)
				r.Put("/digital", s.handleSetDigital)
				r.Put("/analog/{channel}", s.handleMoveAnalog)
				r.Post("/trigger", s.handleTrigger)
			})
		})
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

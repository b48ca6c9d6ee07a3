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
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Sequence storage, keyed by grid slot
		r.Route("/sequences", func(r chi.Router) {
			r.Get("/", s.handleListSequences)

			r.Route("/{x}/{y}", func(r chi.Router) {
				r.Get("/", s.handleGetSequence)
				r.Put("/", s.handleSaveSequence)
				r.Delete("/", s.handleDeleteSequence)
			})
		})

		// Playback control
		r.Route("/playback", func(r chi.Router) {
			r.Get("/", s.handlePlaybackStatus)
			r.Get("/history", s.handlePlaybackHistory)
			r.Post("/activate/{x}/{y}", s.handleActivate)
			r.Post("/play", s.handlePlay)
			r.Post("/pause", s.handlePause)
			r.Post("/toggle", s.handleTogglePlayPause)
			r.Post("/next", s.handleNextStep)
			r.Post("/stop", s.handleStopPlayback)
			r.Post("/clear", s.handleClearPlayback)
		})

		// Scene state
		r.Route("/scenes", func(r chi.Router) {
			r.Get("/", s.handleListScenes)
			r.Post("/toggle/{x}/{y}", s.handleToggleScene)
			r.Post("/clear", s.handleClearScenes)
		})

		// Device status
		r.Get("/devices", s.handleListDevices)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
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

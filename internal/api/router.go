package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleAddDevice)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Delete("/", s.handleRemoveDevice)
				r.Post("/start", s.handleStartDevice)
				r.Post("/stop", s.handleStopDevice)
				r.Get("/image", s.handleDeviceImage)

				r.Route("/tasks", func(r chi.Router) {
					r.Get("/", s.handleListTasks)
					r.Post("/reorder", s.handleReorderTasks)
					r.Patch("/{index}", s.handleUpdateTask)
					r.Delete("/{index}", s.handleDeleteTask)
					r.Post("/{index}/copy", s.handleCopyTask)
				})
			})
		})

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

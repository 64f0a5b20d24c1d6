package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Service configuration records
	r.Route("/config", func(r chi.Router) {
		r.Get("/", s.listConfigs)
		r.Put("/", s.setConfig)
		r.Delete("/", s.wipeConfigs)
		r.Delete("/{service}/{environment}", s.removeConfig)
	})

	// Active source list
	r.Route("/sources", func(r chi.Router) {
		r.Get("/", s.getSources)
		r.Post("/", s.updateSources)
	})

	// Document operations
	r.Post("/validate", s.validateDocument)
	r.Post("/render", s.renderDocument)
	r.Get("/resolve", s.resolveDocument)

	// Central settings discovery
	r.Post("/discover", s.discoverSettings)

	// Event streaming (SSE)
	r.Get("/event", s.events)
}

package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/debug", h.Debug)

	// Query orchestration: streaming and synchronous modes.
	r.Post("/chat", h.Chat)
	r.Post("/query", h.Query)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/documents", h.ListDocuments)
		r.Post("/documents", h.RegisterDocument)
		r.Get("/documents/{id}", h.GetDocument)
	})
}

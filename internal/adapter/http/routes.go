package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/avollmer/deskmux/internal/adapter/ws"
)

// MountSupervisorRoutes registers the supervisor surface on the router.
func MountSupervisorRoutes(r chi.Router, h *SupervisorHandlers, hub *ws.Hub) {
	r.Post("/process", h.HandleQuery)
	r.Get("/health", h.Health)
	r.Get("/ws", hub.HandleWS)
	r.Get("/api/v1/domains", h.ListDomains)
}

// MountSpecialistRoutes registers the specialist surface on the router.
func MountSpecialistRoutes(r chi.Router, h *SpecialistHandlers) {
	r.Post("/process", h.HandleProcess)
	r.Get("/health", h.Health)
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the appointment API. Availability is public; everything else goes
// through requireAuth.
func (h *BookingHandler) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/api/v1/appointments", func(r chi.Router) {
		r.Get("/available", h.Available)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Get)
			r.Delete("/{id}", h.Cancel)
		})
	})
}

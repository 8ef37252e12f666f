package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/c0d3rb4b4/image-optimizer/internal/transport/handler"
)

func NewRouter(h *handler.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/optimize", h.Optimize)
		r.Post("/optimize/batch", h.OptimizeBatch)
	})

	return r
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the API on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.GetConfig)
		r.Get("/version", h.GetVersion)

		r.Group(func(r chi.Router) {
			if h.cfg.Limiter != nil {
				r.Use(RateLimitMiddleware(h.cfg.Limiter))
			}
			r.Post("/charts/generate", h.GenerateCharts)
			r.Post("/datasets/{id}/charts", h.RegenerateCharts)
			r.Post("/charts/{id}/export", h.ExportChart)
		})

		r.Get("/charts", h.ListCharts)
		r.Get("/charts/{id}", h.GetChart)
		r.Get("/datasets/{id}", h.GetDataSet)
	})
}

// Router returns a chi router serving the API.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

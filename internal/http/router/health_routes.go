package router

import (
	"github.com/go-chi/chi/v5"
)

// registerHealthRoutes registra las rutas públicas de health y métricas.
func registerHealthRoutes(r chi.Router, d Deps) {
	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	if d.MetricsHandler != nil {
		r.Method("GET", "/metrics", d.MetricsHandler)
	}
}

package router

import (
	"github.com/go-chi/chi/v5"

	ctrl "github.com/dropDatabas3/accounts/internal/http/controllers/accounts"
)

// registerAccountRoutes registra /accounts. Requiere RequireAuth en el grupo.
func registerAccountRoutes(r chi.Router, c *ctrl.AccountsController) {
	r.Post("/accounts", c.Create)
	r.Get("/accounts", c.Get)
	r.Patch("/accounts", c.Update)
}

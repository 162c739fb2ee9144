// Package router arma el árbol de rutas HTTP del servicio sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	accountsctrl "github.com/dropDatabas3/accounts/internal/http/controllers/accounts"
	healthctrl "github.com/dropDatabas3/accounts/internal/http/controllers/health"
	verificationctrl "github.com/dropDatabas3/accounts/internal/http/controllers/verification"
	httperrors "github.com/dropDatabas3/accounts/internal/http/errors"
	mw "github.com/dropDatabas3/accounts/internal/http/middlewares"
	"github.com/dropDatabas3/accounts/internal/identity"
	"github.com/dropDatabas3/accounts/internal/metrics"
)

// Deps contiene todo lo que necesita el router.
type Deps struct {
	Accounts     *accountsctrl.AccountsController
	Verification *verificationctrl.VerificationController
	Health       *healthctrl.HealthController

	Identity      identity.Provider
	SessionCookie string
	CORSOrigins   []string

	// Límites de /verify-email y /verify-code. Limiter nil ⇒ sin límite.
	IssueLimit  mw.RateLimitConfig
	VerifyLimit mw.RateLimitConfig

	// MetricsHandler nil ⇒ /metrics no se monta.
	MetricsHandler http.Handler
}

// New construye el handler raíz.
//
// Orden: recover → request id → logging → metrics → headers → CORS, y en
// las rutas de API además no-store → auth → rate limit.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		metrics.WithMetrics,
		mw.WithSecurityHeaders(),
		mw.WithCORS(d.CORSOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, r, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, r, httperrors.ErrMethodNotAllowed)
	})

	registerHealthRoutes(r, d)

	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore(), mw.RequireAuth(d.Identity, d.SessionCookie))

		registerAccountRoutes(r, d.Accounts)
		registerVerificationRoutes(r, d)

		// rutas históricas bajo /api
		r.Route("/api", func(r chi.Router) {
			registerAccountRoutes(r, d.Accounts)
			r.Route("/auth", func(r chi.Router) {
				registerVerificationRoutes(r, d)
			})
		})
	})

	return r
}

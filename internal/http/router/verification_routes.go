package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/accounts/internal/http/middlewares"
)

// registerVerificationRoutes registra los endpoints de código y el aviso de
// sign-in. Los de código llevan rate limit propio.
func registerVerificationRoutes(r chi.Router, d Deps) {
	r.With(mw.WithRateLimit(d.IssueLimit)).Post("/verify-email", d.Verification.VerifyEmail)
	r.With(mw.WithRateLimit(d.VerifyLimit)).Post("/verify-code", d.Verification.VerifyCode)
	r.Post("/sign-in-confirmation", d.Accounts.SignInConfirmation)
}

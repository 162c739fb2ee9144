// Package verification contiene los controllers de verificación de email.
package verification

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/accounts/internal/http/dto"
	httperrors "github.com/dropDatabas3/accounts/internal/http/errors"
	"github.com/dropDatabas3/accounts/internal/http/helpers"
	mw "github.com/dropDatabas3/accounts/internal/http/middlewares"
	svc "github.com/dropDatabas3/accounts/internal/http/services/verification"
	"github.com/dropDatabas3/accounts/internal/observability/logger"
	"go.uber.org/zap"
)

// VerificationController maneja POST /verify-email y POST /verify-code.
type VerificationController struct {
	service svc.Service
}

// NewVerificationController crea el controller de verificación.
func NewVerificationController(service svc.Service) *VerificationController {
	return &VerificationController{service: service}
}

// VerifyEmail emite y envía un código nuevo al email del usuario.
func (c *VerificationController) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("VerificationController.VerifyEmail"))

	sub := mw.GetSubject(ctx)
	if sub == nil {
		httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
		return
	}

	if err := c.service.IssueCode(ctx, sub); err != nil {
		c.handleError(w, r, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "Verification code sent"})
}

// VerifyCode consume el código enviado en {code}.
func (c *VerificationController) VerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("VerificationController.VerifyCode"))

	sub := mw.GetSubject(ctx)
	if sub == nil {
		httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
		return
	}

	var req dto.VerifyCodeRequest
	if err := helpers.ReadJSON(w, r, &req, false); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	if err := helpers.Validate(&req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	if _, err := c.service.VerifyCode(ctx, sub, req.Code); err != nil {
		c.handleError(w, r, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.VerifyCodeResponse{Message: "Email verified", Verified: true})
}

func (c *VerificationController) handleError(w http.ResponseWriter, r *http.Request, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrEmailMissing):
		httperrors.WriteError(w, r, httperrors.ErrEmailMissing)
	case errors.Is(err, svc.ErrMalformedCode):
		httperrors.WriteError(w, r, httperrors.ErrInvalidInput.WithDetail("code must be exactly 6 digits"))
	case errors.Is(err, svc.ErrInvalidOrExpiredCode):
		httperrors.WriteError(w, r, httperrors.ErrInvalidOrExpiredCode)
	case errors.Is(err, svc.ErrDeliveryFailed):
		httperrors.WriteError(w, r, httperrors.ErrDeliveryFailed.WithCause(err))
	default:
		log.Error("verification request failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
	}
}

// Package accounts contiene los controllers de /accounts y del aviso de sign-in.
package accounts

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/accounts/internal/http/dto"
	httperrors "github.com/dropDatabas3/accounts/internal/http/errors"
	"github.com/dropDatabas3/accounts/internal/http/helpers"
	mw "github.com/dropDatabas3/accounts/internal/http/middlewares"
	svc "github.com/dropDatabas3/accounts/internal/http/services/accounts"
	"github.com/dropDatabas3/accounts/internal/observability/logger"
	"go.uber.org/zap"
)

// AccountsController maneja POST/GET/PATCH /accounts y POST /sign-in-confirmation.
type AccountsController struct {
	service svc.Service
}

// NewAccountsController crea el controller de cuentas.
func NewAccountsController(service svc.Service) *AccountsController {
	return &AccountsController{service: service}
}

// Create maneja POST /accounts. El body es opcional.
func (c *AccountsController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AccountsController.Create"))

	sub := mw.GetSubject(ctx)
	if sub == nil {
		httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
		return
	}

	var req dto.CreateAccountRequest
	if err := helpers.ReadJSON(w, r, &req, true); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	req.CompanyName = helpers.CleanText(req.CompanyName)
	req.CompanyAddress = helpers.CleanText(req.CompanyAddress)
	if err := helpers.Validate(&req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	acc, err := c.service.Create(ctx, sub, svc.CreateInput{
		Role:           req.Role,
		CompanyName:    req.CompanyName,
		CompanyAddress: req.CompanyAddress,
	})
	if err != nil {
		c.handleError(w, r, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, dto.NewAccountResponse(acc))
}

// Get maneja GET /accounts.
func (c *AccountsController) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AccountsController.Get"))

	sub := mw.GetSubject(ctx)
	if sub == nil {
		httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
		return
	}

	acc, err := c.service.Get(ctx, sub)
	if err != nil {
		c.handleError(w, r, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.NewAccountResponse(acc))
}

// Update maneja PATCH /accounts. Email y estado se ignoran aunque vengan.
func (c *AccountsController) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AccountsController.Update"))

	sub := mw.GetSubject(ctx)
	if sub == nil {
		httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateAccountRequest
	if err := helpers.ReadJSON(w, r, &req, false); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	req.FirstName = helpers.CleanTextPtr(req.FirstName)
	req.LastName = helpers.CleanTextPtr(req.LastName)
	req.CompanyName = helpers.CleanTextPtr(req.CompanyName)
	req.CompanyAddress = helpers.CleanTextPtr(req.CompanyAddress)
	if err := helpers.Validate(&req); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	acc, err := c.service.Update(ctx, sub, svc.UpdateInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		CompanyName:    req.CompanyName,
		CompanyAddress: req.CompanyAddress,
		Role:           req.Role,
	})
	if err != nil {
		c.handleError(w, r, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.NewAccountResponse(acc))
}

// SignInConfirmation maneja POST /sign-in-confirmation.
func (c *AccountsController) SignInConfirmation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AccountsController.SignInConfirmation"))

	sub := mw.GetSubject(ctx)
	if sub == nil {
		httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
		return
	}

	created, err := c.service.SignInNotification(ctx, sub)
	if err != nil {
		c.handleError(w, r, err, log)
		return
	}

	msg := "Sign-in confirmed"
	if created {
		msg = "Account created"
	}
	helpers.WriteJSON(w, http.StatusOK, dto.SignInConfirmationResponse{Message: msg, IsNewAccount: created})
}

func (c *AccountsController) handleError(w http.ResponseWriter, r *http.Request, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrNotFound):
		httperrors.WriteError(w, r, httperrors.ErrAccountNotFound)
	case errors.Is(err, svc.ErrAlreadyExists):
		httperrors.WriteError(w, r, httperrors.ErrAccountAlreadyExists)
	case errors.Is(err, svc.ErrEmailMissing):
		httperrors.WriteError(w, r, httperrors.ErrEmailMissing)
	case errors.Is(err, svc.ErrInvalidRole):
		httperrors.WriteError(w, r, httperrors.ErrInvalidInput.WithDetail("role must be one of buyer, seller, admin"))
	case errors.Is(err, svc.ErrAdminNotAllowed):
		httperrors.WriteError(w, r, httperrors.ErrInvalidInput.WithDetail("role admin cannot be self-assigned"))
	default:
		log.Error("accounts request failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
	}
}

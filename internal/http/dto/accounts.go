// Package dto define los cuerpos de request/response de la API.
package dto

import (
	"time"

	"github.com/dropDatabas3/accounts/internal/domain/repository"
)

// CreateAccountRequest: los nombres y el email vienen del IdP, no del body.
type CreateAccountRequest struct {
	Role           string `json:"role,omitempty" validate:"omitempty,oneof=buyer seller admin"`
	CompanyName    string `json:"companyName,omitempty" validate:"max=200"`
	CompanyAddress string `json:"companyAddress,omitempty" validate:"max=500"`
}

// UpdateAccountRequest: allow-list de campos mutables. Cualquier otro campo
// del JSON (email, accountStatus...) se descarta al decodificar.
type UpdateAccountRequest struct {
	FirstName      *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName       *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	CompanyName    *string `json:"companyName,omitempty" validate:"omitempty,max=200"`
	CompanyAddress *string `json:"companyAddress,omitempty" validate:"omitempty,max=500"`
	Role           *string `json:"role,omitempty" validate:"omitempty,oneof=buyer seller admin"`
}

// AccountResponse es la vista pública de una cuenta.
type AccountResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Role           string    `json:"role"`
	CompanyName    string    `json:"companyName,omitempty"`
	CompanyAddress string    `json:"companyAddress,omitempty"`
	AccountStatus  string    `json:"accountStatus"`
	EmailVerified  bool      `json:"emailVerified"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func NewAccountResponse(a *repository.Account) AccountResponse {
	return AccountResponse{
		ID:             a.ID,
		Email:          a.Email,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Role:           string(a.Role),
		CompanyName:    a.CompanyName,
		CompanyAddress: a.CompanyAddress,
		AccountStatus:  string(a.Status),
		EmailVerified:  a.EmailVerified,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

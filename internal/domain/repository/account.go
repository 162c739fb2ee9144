package repository

import (
	"context"
	"strings"
	"time"
)

// Role es el rol comercial de una cuenta.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid indica si el rol es uno de los conocidos.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// AccountStatus es el estado de ciclo de vida de una cuenta.
type AccountStatus string

const (
	StatusPending   AccountStatus = "pending"
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
)

// Account representa la cuenta local asociada a un subject del IdP.
type Account struct {
	ID             string
	Subject        string
	Email          string
	FirstName      string
	LastName       string
	Role           Role
	CompanyName    string
	CompanyAddress string
	Status         AccountStatus
	EmailVerified  bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DisplayName devuelve "Nombre Apellido" o el email si no hay nombre.
func (a *Account) DisplayName() string {
	if n := strings.TrimSpace(a.FirstName + " " + a.LastName); n != "" {
		return n
	}
	return a.Email
}

// CreateAccountInput contiene los datos para crear una cuenta.
type CreateAccountInput struct {
	Subject        string
	Email          string
	FirstName      string
	LastName       string
	Role           Role
	CompanyName    string
	CompanyAddress string
	Status         AccountStatus
	EmailVerified  bool
	Now            time.Time
}

// UpdateAccountInput contiene los únicos campos mutables por el usuario.
// nil significa "no tocar". Email y Status no existen aquí a propósito.
type UpdateAccountInput struct {
	FirstName      *string
	LastName       *string
	CompanyName    *string
	CompanyAddress *string
	Role           *Role
	Now            time.Time
}

// Empty indica si no hay ningún campo para actualizar.
func (in UpdateAccountInput) Empty() bool {
	return in.FirstName == nil && in.LastName == nil && in.CompanyName == nil &&
		in.CompanyAddress == nil && in.Role == nil
}

// AccountRepository define operaciones sobre cuentas.
type AccountRepository interface {
	// Get busca la cuenta de un subject.
	// Retorna ErrNotFound si no existe.
	Get(ctx context.Context, subject string) (*Account, error)

	// Create inserta una cuenta nueva.
	// Retorna ErrConflict si el subject ya tiene cuenta (índice único).
	Create(ctx context.Context, in CreateAccountInput) (*Account, error)

	// Update aplica los campos permitidos en una sola operación atómica y
	// devuelve el documento resultante. Retorna ErrNotFound si no existe.
	Update(ctx context.Context, subject string, in UpdateAccountInput) (*Account, error)

	// UpsertOnSignIn crea la cuenta con los datos de seed si no existe.
	// Si ya existe no la modifica. created indica si la insertó.
	UpsertOnSignIn(ctx context.Context, seed CreateAccountInput) (acc *Account, created bool, err error)

	// MarkEmailVerified marca emailVerified=true y pasa pending→active en una
	// sola operación. Si la cuenta no existe la crea a partir de seed
	// (status active, emailVerified true). suspended no se toca.
	MarkEmailVerified(ctx context.Context, seed CreateAccountInput) (acc *Account, created bool, err error)
}

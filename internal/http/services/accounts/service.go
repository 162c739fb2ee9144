// Package accounts contiene el service de cuentas: alta, lectura,
// actualización de perfil y registro de sign-ins.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/accounts/internal/domain/repository"
	"github.com/dropDatabas3/accounts/internal/identity"
	"github.com/dropDatabas3/accounts/internal/metrics"
	"github.com/dropDatabas3/accounts/internal/observability/logger"
	"go.uber.org/zap"
)

// Origin indica cómo llegó el usuario al alta.
type Origin string

const (
	// OriginSignUp: alta tras el sign-up con email; queda pendiente de verificar.
	OriginSignUp Origin = "signup"
	// OriginFederated: login social con email ya verificado por el IdP.
	OriginFederated Origin = "federated"
	// OriginSignIn: cuenta creada en el primer sign-in.
	OriginSignIn Origin = "signin"
)

// OriginFor decide el origen a partir de lo que afirma el IdP.
func OriginFor(sub *identity.Subject) Origin {
	if sub.EmailVerified && sub.Federated {
		return OriginFederated
	}
	return OriginSignUp
}

var (
	ErrNotFound        = errors.New("accounts: account not found")
	ErrAlreadyExists   = errors.New("accounts: account already exists")
	ErrEmailMissing    = errors.New("accounts: subject has no email")
	ErrInvalidRole     = errors.New("accounts: invalid role")
	ErrAdminNotAllowed = errors.New("accounts: admin role cannot be self-assigned")
)

// Notifier entrega los correos de cuenta. Los fallos nunca se propagan.
type Notifier interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendSignInConfirmation(ctx context.Context, to, name string, isNew bool) error
}

// CreateInput son los campos de perfil que acepta el alta.
// Nombres y email salen siempre del Subject.
type CreateInput struct {
	Role           string
	CompanyName    string
	CompanyAddress string
}

// UpdateInput: nil significa "no tocar".
type UpdateInput struct {
	FirstName      *string
	LastName       *string
	CompanyName    *string
	CompanyAddress *string
	Role           *string
}

// Service define las operaciones sobre cuentas.
type Service interface {
	Get(ctx context.Context, sub *identity.Subject) (*repository.Account, error)
	Create(ctx context.Context, sub *identity.Subject, in CreateInput) (*repository.Account, error)
	Update(ctx context.Context, sub *identity.Subject, in UpdateInput) (*repository.Account, error)
	// SignInNotification crea la cuenta en el primer sign-in y avisa por
	// email. created indica si la cuenta es nueva.
	SignInNotification(ctx context.Context, sub *identity.Subject) (created bool, err error)
}

// Deps contiene las dependencias del service.
type Deps struct {
	Accounts       repository.AccountRepository
	Notifier       Notifier
	AllowSelfAdmin bool
	Now            func() time.Time
}

type service struct {
	deps Deps
}

// NewService crea el service de cuentas.
func NewService(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{deps: deps}
}

func (s *service) log(ctx context.Context, op string, sub *identity.Subject) *zap.Logger {
	return logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("accounts"),
		logger.Op(op),
		logger.Subject(sub.ID),
	)
}

func (s *service) Get(ctx context.Context, sub *identity.Subject) (*repository.Account, error) {
	acc, err := s.deps.Accounts.Get(ctx, sub.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

func (s *service) Create(ctx context.Context, sub *identity.Subject, in CreateInput) (*repository.Account, error) {
	log := s.log(ctx, "Create", sub)
	if sub.Email == "" {
		return nil, ErrEmailMissing
	}

	role := repository.RoleBuyer
	if in.Role != "" {
		r, err := s.checkRole(ctx, sub, in.Role)
		if err != nil {
			return nil, err
		}
		role = r
	}

	// lectura de cortesía; el índice único decide de verdad
	if _, err := s.deps.Accounts.Get(ctx, sub.ID); err == nil {
		return nil, ErrAlreadyExists
	} else if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("get account: %w", err)
	}

	origin := OriginFor(sub)
	seed := repository.CreateAccountInput{
		Subject:        sub.ID,
		Email:          sub.Email,
		FirstName:      sub.FirstName,
		LastName:       sub.LastName,
		Role:           role,
		CompanyName:    in.CompanyName,
		CompanyAddress: in.CompanyAddress,
		Status:         repository.StatusPending,
		Now:            s.deps.Now(),
	}
	if origin == OriginFederated {
		seed.Status = repository.StatusActive
		seed.EmailVerified = true
	}

	acc, err := s.deps.Accounts.Create(ctx, seed)
	if err != nil {
		if repository.IsConflict(err) {
			return nil, ErrAlreadyExists
		}
		log.Error("create account failed", logger.Err(err))
		return nil, fmt.Errorf("create account: %w", err)
	}

	metrics.AccountsCreated.WithLabelValues(string(origin)).Inc()
	log.Info("account created",
		logger.Email(acc.Email),
		logger.Role(string(acc.Role)),
		logger.String("origin", string(origin)),
	)

	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.SendWelcome(ctx, acc.Email, acc.DisplayName()); err != nil {
			log.Warn("welcome email not delivered", logger.Err(err))
		}
	}
	return acc, nil
}

func (s *service) Update(ctx context.Context, sub *identity.Subject, in UpdateInput) (*repository.Account, error) {
	log := s.log(ctx, "Update", sub)

	upd := repository.UpdateAccountInput{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		CompanyName:    in.CompanyName,
		CompanyAddress: in.CompanyAddress,
		Now:            s.deps.Now(),
	}
	if in.Role != nil {
		r, err := s.checkRole(ctx, sub, *in.Role)
		if err != nil {
			return nil, err
		}
		upd.Role = &r
	}
	if upd.Empty() {
		return s.Get(ctx, sub)
	}

	acc, err := s.deps.Accounts.Update(ctx, sub.ID, upd)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		log.Error("update account failed", logger.Err(err))
		return nil, fmt.Errorf("update account: %w", err)
	}
	log.Info("account updated")
	return acc, nil
}

// checkRole valida el rol pedido. Con AllowSelfAdmin el auto-ascenso a admin
// se permite pero queda registrado.
func (s *service) checkRole(ctx context.Context, sub *identity.Subject, raw string) (repository.Role, error) {
	r := repository.Role(raw)
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	if r == repository.RoleAdmin {
		if !s.deps.AllowSelfAdmin {
			return "", ErrAdminNotAllowed
		}
		s.log(ctx, "checkRole", sub).Warn("user self-assigned admin role", logger.Email(sub.Email))
	}
	return r, nil
}

func (s *service) SignInNotification(ctx context.Context, sub *identity.Subject) (bool, error) {
	log := s.log(ctx, "SignInNotification", sub)
	if sub.Email == "" {
		return false, ErrEmailMissing
	}

	acc, created, err := s.deps.Accounts.UpsertOnSignIn(ctx, repository.CreateAccountInput{
		Subject:       sub.ID,
		Email:         sub.Email,
		FirstName:     sub.FirstName,
		LastName:      sub.LastName,
		Role:          repository.RoleBuyer,
		Status:        repository.StatusActive,
		EmailVerified: sub.EmailVerified,
		Now:           s.deps.Now(),
	})
	if err != nil {
		log.Error("sign-in upsert failed", logger.Err(err))
		return false, fmt.Errorf("upsert on sign-in: %w", err)
	}

	if created {
		metrics.AccountsCreated.WithLabelValues(string(OriginSignIn)).Inc()
	}
	log.Info("sign-in recorded", logger.Created(created))

	if s.deps.Notifier != nil {
		// saludo con el nombre actual del IdP, no el guardado
		name := sub.FullName()
		if name == "" {
			name = acc.Email
		}
		if err := s.deps.Notifier.SendSignInConfirmation(ctx, acc.Email, name, created); err != nil {
			log.Warn("sign-in email not delivered", logger.Err(err))
		}
	}
	return created, nil
}

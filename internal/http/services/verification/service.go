// Package verification implementa el ciclo de vida de los códigos de
// verificación de email: emisión, consumo único y activación de cuenta.
package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/accounts/internal/domain/repository"
	"github.com/dropDatabas3/accounts/internal/identity"
	"github.com/dropDatabas3/accounts/internal/metrics"
	"github.com/dropDatabas3/accounts/internal/observability/logger"
)

const (
	// DefaultCodeTTL es la vida de un código desde su emisión.
	DefaultCodeTTL = 10 * time.Minute
	// issueAttempts acota los reintentos cuando dos emisiones concurrentes
	// chocan en el índice de código activo.
	issueAttempts = 3
)

var (
	ErrEmailMissing         = errors.New("verification: subject has no email")
	ErrMalformedCode        = errors.New("verification: code must be 6 digits")
	ErrInvalidOrExpiredCode = errors.New("verification: invalid or expired code")
	ErrDeliveryFailed       = errors.New("verification: delivery failed")
)

// Notifier entrega los correos que dispara la verificación.
type Notifier interface {
	SendVerificationCode(ctx context.Context, to, name, code string) error
	SendWelcome(ctx context.Context, to, name string) error
}

// Service define las operaciones de verificación.
type Service interface {
	// IssueCode invalida los códigos activos del par (email, subject),
	// emite uno nuevo y lo envía por email.
	IssueCode(ctx context.Context, sub *identity.Subject) error
	// VerifyCode consume el código y marca la cuenta como verificada,
	// creándola si no existía.
	VerifyCode(ctx context.Context, sub *identity.Subject, code string) (*repository.Account, error)
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Codes    repository.VerificationCodeRepository
	Accounts repository.AccountRepository
	Notifier Notifier
	CodeTTL  time.Duration
	Now      func() time.Time
	Generate func() (string, error)
}

type service struct {
	deps Deps
}

// NewService completa los defaults (reloj real, generador crypto/rand).
func NewService(deps Deps) Service {
	if deps.CodeTTL <= 0 {
		deps.CodeTTL = DefaultCodeTTL
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Generate == nil {
		deps.Generate = GenerateCode
	}
	return &service{deps: deps}
}

func (s *service) IssueCode(ctx context.Context, sub *identity.Subject) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("verification"),
		logger.Op("IssueCode"),
		logger.Subject(sub.ID),
	)
	if sub.Email == "" {
		return ErrEmailMissing
	}

	code, err := s.deps.Generate()
	if err != nil {
		metrics.CodesIssued.WithLabelValues("error").Inc()
		return fmt.Errorf("generate code: %w", err)
	}

	key := repository.CodeKey{Email: sub.Email, Subject: sub.ID}
	now := s.deps.Now()
	if err := s.store(ctx, key, code, now); err != nil {
		metrics.CodesIssued.WithLabelValues("error").Inc()
		log.Error("code persist failed", logger.Err(err))
		return err
	}

	if err := s.deps.Notifier.SendVerificationCode(ctx, sub.Email, sub.FullName(), code); err != nil {
		metrics.CodesIssued.WithLabelValues("delivery_failed").Inc()
		log.Warn("verification email not delivered", logger.Err(err))
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	metrics.CodesIssued.WithLabelValues("sent").Inc()
	log.Info("verification code issued", logger.Email(sub.Email))
	return nil
}

// store invalida y persiste. Si otra emisión concurrente insertó entre
// medio, el índice parcial rechaza el insert y se vuelve a invalidar.
func (s *service) store(ctx context.Context, key repository.CodeKey, code string, now time.Time) error {
	var err error
	for attempt := 0; attempt < issueAttempts; attempt++ {
		if _, err = s.deps.Codes.InvalidateActive(ctx, key, now); err != nil {
			return fmt.Errorf("invalidate codes: %w", err)
		}
		_, err = s.deps.Codes.Insert(ctx, repository.InsertCodeInput{
			Key:       key,
			Code:      code,
			ExpiresAt: now.Add(s.deps.CodeTTL),
			Now:       now,
		})
		if !errors.Is(err, repository.ErrConflict) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("insert code: %w", err)
	}
	return nil
}

func (s *service) VerifyCode(ctx context.Context, sub *identity.Subject, code string) (*repository.Account, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("verification"),
		logger.Op("VerifyCode"),
		logger.Subject(sub.ID),
	)
	if sub.Email == "" {
		return nil, ErrEmailMissing
	}
	if !WellFormed(code) {
		metrics.CodeAttempts.WithLabelValues("malformed").Inc()
		return nil, ErrMalformedCode
	}

	now := s.deps.Now()
	key := repository.CodeKey{Email: sub.Email, Subject: sub.ID}
	if _, err := s.deps.Codes.Consume(ctx, key, code, now); err != nil {
		if errors.Is(err, repository.ErrCodeUnusable) {
			metrics.CodeAttempts.WithLabelValues("rejected").Inc()
			log.Info("verification code rejected")
			return nil, ErrInvalidOrExpiredCode
		}
		metrics.CodeAttempts.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("consume code: %w", err)
	}
	metrics.CodeAttempts.WithLabelValues("verified").Inc()

	acc, created, err := s.deps.Accounts.MarkEmailVerified(ctx, repository.CreateAccountInput{
		Subject:       sub.ID,
		Email:         sub.Email,
		FirstName:     sub.FirstName,
		LastName:      sub.LastName,
		Role:          repository.RoleBuyer,
		Status:        repository.StatusActive,
		EmailVerified: true,
		Now:           now,
	})
	if err != nil {
		// el código ya quedó consumido; el usuario debe pedir otro
		log.Error("mark email verified failed", logger.Err(err))
		return nil, fmt.Errorf("mark email verified: %w", err)
	}

	log.Info("email verified", logger.Created(created), logger.String("status", string(acc.Status)))
	if created {
		metrics.AccountsCreated.WithLabelValues("verification").Inc()
		if err := s.deps.Notifier.SendWelcome(ctx, acc.Email, acc.DisplayName()); err != nil {
			log.Warn("welcome email not delivered", logger.Err(err))
		}
	}
	return acc, nil
}

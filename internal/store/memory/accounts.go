// Package memory implementa los repositorios de dominio en memoria.
// Se usa en desarrollo (mongo.uri vacío) y en tests de services.
package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/accounts/internal/domain/repository"
	"github.com/google/uuid"
)

// AccountStore es un repository.AccountRepository en memoria.
// El mutex hace las veces del índice único de subject.
type AccountStore struct {
	mu    sync.Mutex
	items map[string]*repository.Account // subject -> account
}

var _ repository.AccountRepository = (*AccountStore)(nil)

// NewAccountStore crea un store vacío.
func NewAccountStore() *AccountStore {
	return &AccountStore{items: make(map[string]*repository.Account)}
}

func (s *AccountStore) Get(ctx context.Context, subject string) (*repository.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[subject]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *AccountStore) Create(ctx context.Context, in repository.CreateAccountInput) (*repository.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[in.Subject]; ok {
		return nil, repository.ErrConflict
	}
	a := fromInput(in)
	s.items[in.Subject] = a
	cp := *a
	return &cp, nil
}

func (s *AccountStore) Update(ctx context.Context, subject string, in repository.UpdateAccountInput) (*repository.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[subject]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if in.FirstName != nil {
		a.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		a.LastName = *in.LastName
	}
	if in.CompanyName != nil {
		a.CompanyName = *in.CompanyName
	}
	if in.CompanyAddress != nil {
		a.CompanyAddress = *in.CompanyAddress
	}
	if in.Role != nil {
		a.Role = *in.Role
	}
	a.UpdatedAt = in.Now
	cp := *a
	return &cp, nil
}

func (s *AccountStore) UpsertOnSignIn(ctx context.Context, seed repository.CreateAccountInput) (*repository.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.items[seed.Subject]; ok {
		cp := *a
		return &cp, false, nil
	}
	a := fromInput(seed)
	s.items[seed.Subject] = a
	cp := *a
	return &cp, true, nil
}

func (s *AccountStore) MarkEmailVerified(ctx context.Context, seed repository.CreateAccountInput) (*repository.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[seed.Subject]
	if !ok {
		seed.Status = repository.StatusActive
		seed.EmailVerified = true
		a = fromInput(seed)
		s.items[seed.Subject] = a
		cp := *a
		return &cp, true, nil
	}

	a.EmailVerified = true
	if a.Status == repository.StatusPending {
		a.Status = repository.StatusActive
	}
	a.UpdatedAt = seed.Now
	cp := *a
	return &cp, false, nil
}

func fromInput(in repository.CreateAccountInput) *repository.Account {
	role := in.Role
	if role == "" {
		role = repository.RoleBuyer
	}
	return &repository.Account{
		ID:             uuid.NewString(),
		Subject:        in.Subject,
		Email:          in.Email,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Role:           role,
		CompanyName:    in.CompanyName,
		CompanyAddress: in.CompanyAddress,
		Status:         in.Status,
		EmailVerified:  in.EmailVerified,
		CreatedAt:      in.Now,
		UpdatedAt:      in.Now,
	}
}

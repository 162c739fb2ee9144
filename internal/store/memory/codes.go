package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/accounts/internal/domain/repository"
	"github.com/google/uuid"
)

// CodeStore es un repository.VerificationCodeRepository en memoria.
type CodeStore struct {
	mu    sync.Mutex
	items []*repository.VerificationCode
}

var _ repository.VerificationCodeRepository = (*CodeStore)(nil)

// NewCodeStore crea un store vacío.
func NewCodeStore() *CodeStore {
	return &CodeStore{}
}

func (s *CodeStore) InvalidateActive(ctx context.Context, key repository.CodeKey, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, c := range s.items {
		if c.Email == key.Email && c.Subject == key.Subject && !c.Verified {
			markVerified(c, now)
			n++
		}
	}
	return n, nil
}

func (s *CodeStore) Insert(ctx context.Context, in repository.InsertCodeInput) (*repository.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// mismo contrato que el índice parcial único de mongo
	for _, c := range s.items {
		if c.Email == in.Key.Email && c.Subject == in.Key.Subject && !c.Verified {
			return nil, repository.ErrConflict
		}
	}
	c := &repository.VerificationCode{
		ID:        uuid.NewString(),
		Email:     in.Key.Email,
		Subject:   in.Key.Subject,
		Code:      in.Code,
		ExpiresAt: in.ExpiresAt,
		CreatedAt: in.Now,
	}
	s.items = append(s.items, c)
	cp := *c
	return &cp, nil
}

func (s *CodeStore) Consume(ctx context.Context, key repository.CodeKey, code string, now time.Time) (*repository.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.items {
		if c.Email == key.Email && c.Subject == key.Subject && c.Code == code && c.Active(now) {
			markVerified(c, now)
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrCodeUnusable
}

func (s *CodeStore) Reap(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]*repository.VerificationCode, 0, len(s.items))
	var n int64
	for _, c := range s.items {
		if c.ExpiresAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	s.items = kept
	return n, nil
}

// Snapshot devuelve una copia de todos los códigos del par. Solo para tests y diagnósticos.
func (s *CodeStore) Snapshot(key repository.CodeKey) []repository.VerificationCode {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []repository.VerificationCode
	for _, c := range s.items {
		if c.Email == key.Email && c.Subject == key.Subject {
			out = append(out, *c)
		}
	}
	return out
}

func markVerified(c *repository.VerificationCode, now time.Time) {
	t := now
	c.Verified = true
	c.VerifiedAt = &t
}

package repository

import (
	"context"
	"time"
)

// VerificationCode es un código numérico de un solo uso.
type VerificationCode struct {
	ID         string
	Email      string
	Subject    string
	Code       string
	ExpiresAt  time.Time
	Verified   bool
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

// Active indica si el código sigue utilizable en now.
func (c *VerificationCode) Active(now time.Time) bool {
	return !c.Verified && c.ExpiresAt.After(now)
}

// CodeKey identifica el par (email, subject) al que pertenece un código.
type CodeKey struct {
	Email   string
	Subject string
}

// InsertCodeInput contiene los datos de un código recién generado.
type InsertCodeInput struct {
	Key       CodeKey
	Code      string
	ExpiresAt time.Time
	Now       time.Time
}

// VerificationCodeRepository define operaciones sobre códigos de verificación.
type VerificationCodeRepository interface {
	// InvalidateActive marca verified=true todos los códigos no verificados
	// del par, sin validarlos. Retorna cuántos modificó.
	InvalidateActive(ctx context.Context, key CodeKey, now time.Time) (int64, error)

	// Insert persiste un código nuevo con verified=false.
	// Retorna ErrConflict si ya existe otro código no verificado para el par.
	Insert(ctx context.Context, in InsertCodeInput) (*VerificationCode, error)

	// Consume busca un código activo que coincida exactamente y lo marca
	// verified=true en la misma operación.
	// Retorna ErrCodeUnusable si no hay coincidencia.
	Consume(ctx context.Context, key CodeKey, code string, now time.Time) (*VerificationCode, error)

	// Reap elimina códigos que expiraron antes de before (housekeeping).
	Reap(ctx context.Context, before time.Time) (int64, error)
}

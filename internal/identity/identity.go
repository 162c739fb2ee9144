// Package identity verifica los bearer tokens emitidos por el IdP externo.
//
// El servicio no emite tokens: solo valida firma y claims estándar y
// extrae el Subject que usan los services.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrTokenMissing: no llegó token.
	ErrTokenMissing = errors.New("identity: token missing")
	// ErrTokenInvalid: firma, formato o claims inválidos.
	ErrTokenInvalid = errors.New("identity: token invalid")
)

// Subject es el usuario autenticado tal como lo describe el IdP.
type Subject struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	EmailVerified bool
	// Federated indica un login OAuth/social (claim de federación presente).
	Federated bool
}

// FullName une nombre y apellido; vacío si el IdP no los envía.
func (s *Subject) FullName() string {
	switch {
	case s.FirstName != "" && s.LastName != "":
		return s.FirstName + " " + s.LastName
	case s.FirstName != "":
		return s.FirstName
	default:
		return s.LastName
	}
}

// Provider autentica un token crudo (sin el prefijo "Bearer ").
type Provider interface {
	Authenticate(ctx context.Context, rawToken string) (*Subject, error)
}

package middlewares

import (
	"context"

	"github.com/dropDatabas3/accounts/internal/identity"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	subjectKey
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

// GetRequestID retorna el request id del contexto ("" si no hay).
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey).(string)
	return s
}

// WithSubject guarda el usuario autenticado en el contexto.
func WithSubject(ctx context.Context, s *identity.Subject) context.Context {
	return context.WithValue(ctx, subjectKey, s)
}

// GetSubject retorna el usuario autenticado o nil.
func GetSubject(ctx context.Context) *identity.Subject {
	s, _ := ctx.Value(subjectKey).(*identity.Subject)
	return s
}

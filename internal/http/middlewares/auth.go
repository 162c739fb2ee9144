package middlewares

import (
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/accounts/internal/http/errors"
	"github.com/dropDatabas3/accounts/internal/identity"
	"github.com/dropDatabas3/accounts/internal/observability/logger"
)

// RequireAuth valida el bearer token con el provider y guarda el Subject
// en el contexto. Si sessionCookie no es vacío, se acepta el token desde
// esa cookie cuando no hay header Authorization.
func RequireAuth(p identity.Provider, sessionCookie string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" && sessionCookie != "" {
				if c, err := r.Cookie(sessionCookie); err == nil {
					raw = c.Value
				}
			}
			if raw == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				httperrors.WriteError(w, r, httperrors.ErrTokenMissing)
				return
			}

			sub, err := p.Authenticate(r.Context(), raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				switch {
				case errors.Is(err, identity.ErrTokenMissing):
					httperrors.WriteError(w, r, httperrors.ErrTokenMissing)
				case errors.Is(err, identity.ErrTokenInvalid):
					httperrors.WriteError(w, r, httperrors.ErrTokenInvalid)
				default:
					httperrors.WriteError(w, r, httperrors.ErrUnauthorized.WithCause(err))
				}
				return
			}

			ctx := WithSubject(r.Context(), sub)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.Subject(sub.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(ah) < 7 || !strings.EqualFold(ah[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(ah[7:])
}

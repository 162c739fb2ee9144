package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/accounts/internal/observability/logger"
	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Config configura el Verifier. Se requiere JWKSURL o HS256Secret.
type Config struct {
	Issuer          string
	Audience        string
	JWKSURL         string
	HS256Secret     string
	JWKSTTL         time.Duration
	FederationClaim string // default "oauth_provider"
	Leeway          time.Duration
	HTTPClient      *http.Client
	// Now permite fijar el reloj en tests.
	Now func() time.Time
}

// Verifier implementa Provider con golang-jwt.
type Verifier struct {
	cfg     Config
	jwks    *jwksSource
	methods []string
}

var _ Provider = (*Verifier)(nil)

// NewVerifier valida la configuración y prepara la fuente de claves.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.FederationClaim == "" {
		cfg.FederationClaim = "oauth_provider"
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	v := &Verifier{cfg: cfg}
	switch {
	case cfg.JWKSURL != "":
		v.jwks = newJWKSSource(cfg.JWKSURL, cfg.JWKSTTL, cfg.HTTPClient)
		v.methods = []string{"RS256", "RS384", "RS512", "EdDSA"}
	case cfg.HS256Secret != "":
		v.methods = []string{"HS256"}
	default:
		return nil, errors.New("identity: jwks_url or hs256_secret is required")
	}
	return v, nil
}

func (v *Verifier) Authenticate(ctx context.Context, raw string) (*Subject, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrTokenMissing
	}

	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods(v.methods),
		jwtv5.WithLeeway(v.cfg.Leeway),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(v.cfg.Now),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwtv5.WithAudience(v.cfg.Audience))
	}

	claims := jwtv5.MapClaims{}
	_, err := jwtv5.ParseWithClaims(raw, claims, v.keyfunc(ctx), opts...)
	if err != nil {
		logger.From(ctx).Debug("token rejected",
			logger.Layer("identity"),
			logger.Err(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrTokenInvalid)
	}

	return &Subject{
		ID:            sub,
		Email:         normalizeEmail(stringClaim(claims, "email")),
		FirstName:     strings.TrimSpace(stringClaim(claims, "given_name")),
		LastName:      strings.TrimSpace(stringClaim(claims, "family_name")),
		EmailVerified: boolClaim(claims, "email_verified"),
		Federated:     present(claims, v.cfg.FederationClaim),
	}, nil
}

func (v *Verifier) keyfunc(ctx context.Context) jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		if v.jwks == nil {
			return []byte(v.cfg.HS256Secret), nil
		}
		kid, _ := t.Header["kid"].(string)
		return v.jwks.key(ctx, kid)
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func stringClaim(c jwtv5.MapClaims, name string) string {
	s, _ := c[name].(string)
	return s
}

// algunos IdPs envían email_verified como string
func boolClaim(c jwtv5.MapClaims, name string) bool {
	switch b := c[name].(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}

func present(c jwtv5.MapClaims, name string) bool {
	switch x := c[name].(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	default:
		return true
	}
}

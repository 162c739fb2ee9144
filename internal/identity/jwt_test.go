package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret = "test-secret-0123456789abcdef"
	iss    = "https://idp.example.com"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func hsVerifier(t *testing.T, mutate ...func(*Config)) *Verifier {
	t.Helper()
	cfg := Config{Issuer: iss, HS256Secret: secret, Now: func() time.Time { return now }}
	for _, m := range mutate {
		m(&cfg)
	}
	v, err := NewVerifier(cfg)
	require.NoError(t, err)
	return v
}

func baseClaims() jwtv5.MapClaims {
	return jwtv5.MapClaims{
		"iss":            iss,
		"sub":            "user_2abc",
		"email":          "  Ana@Example.COM ",
		"given_name":     "Ana",
		"family_name":    "Ruiz",
		"email_verified": true,
		"iat":            now.Unix(),
		"exp":            now.Add(5 * time.Minute).Unix(),
	}
}

func signHS(t *testing.T, c jwtv5.MapClaims) string {
	t.Helper()
	s, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestNewVerifierRequiresKeys(t *testing.T) {
	_, err := NewVerifier(Config{})
	assert.Error(t, err)
}

func TestAuthenticate_HS256(t *testing.T) {
	v := hsVerifier(t)
	sub, err := v.Authenticate(context.Background(), signHS(t, baseClaims()))
	require.NoError(t, err)

	assert.Equal(t, "user_2abc", sub.ID)
	assert.Equal(t, "ana@example.com", sub.Email)
	assert.Equal(t, "Ana Ruiz", sub.FullName())
	assert.True(t, sub.EmailVerified)
	assert.False(t, sub.Federated)
}

func TestAuthenticate_Rejections(t *testing.T) {
	ctx := context.Background()
	v := hsVerifier(t)

	_, err := v.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = v.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	c := baseClaims()
	c["exp"] = now.Add(-time.Minute).Unix()
	_, err = v.Authenticate(ctx, signHS(t, c))
	assert.ErrorIs(t, err, ErrTokenInvalid, "expired beyond leeway")

	c = baseClaims()
	c["iss"] = "https://evil.example.com"
	_, err = v.Authenticate(ctx, signHS(t, c))
	assert.ErrorIs(t, err, ErrTokenInvalid, "wrong issuer")

	c = baseClaims()
	delete(c, "sub")
	_, err = v.Authenticate(ctx, signHS(t, c))
	assert.ErrorIs(t, err, ErrTokenInvalid, "missing sub")

	c = baseClaims()
	delete(c, "exp")
	_, err = v.Authenticate(ctx, signHS(t, c))
	assert.ErrorIs(t, err, ErrTokenInvalid, "exp required")

	other, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, baseClaims()).SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = v.Authenticate(ctx, other)
	assert.ErrorIs(t, err, ErrTokenInvalid, "bad signature")
}

func TestAuthenticate_Leeway(t *testing.T) {
	v := hsVerifier(t)
	c := baseClaims()
	c["exp"] = now.Add(-10 * time.Second).Unix()
	_, err := v.Authenticate(context.Background(), signHS(t, c))
	assert.NoError(t, err)
}

func TestAuthenticate_Audience(t *testing.T) {
	v := hsVerifier(t, func(c *Config) { c.Audience = "accounts-api" })

	c := baseClaims()
	c["aud"] = "other"
	_, err := v.Authenticate(context.Background(), signHS(t, c))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	c["aud"] = []string{"x", "accounts-api"}
	_, err = v.Authenticate(context.Background(), signHS(t, c))
	assert.NoError(t, err)
}

func TestAuthenticate_FederationAndStringVerified(t *testing.T) {
	v := hsVerifier(t)
	c := baseClaims()
	c["email_verified"] = "true"
	c["oauth_provider"] = "google"

	sub, err := v.Authenticate(context.Background(), signHS(t, c))
	require.NoError(t, err)
	assert.True(t, sub.EmailVerified)
	assert.True(t, sub.Federated)

	v = hsVerifier(t, func(c *Config) { c.FederationClaim = "idp" })
	sub, err = v.Authenticate(context.Background(), signHS(t, c))
	require.NoError(t, err)
	assert.False(t, sub.Federated)
}

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

type jwksServer struct {
	*httptest.Server
	hits atomic.Int32
	keys []map[string]string
}

func newJWKSServer(t *testing.T, keys ...map[string]string) *jwksServer {
	t.Helper()
	s := &jwksServer{keys: keys}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": s.keys})
	}))
	t.Cleanup(s.Close)
	return s
}

func TestAuthenticate_JWKS(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	srv := newJWKSServer(t,
		map[string]string{
			"kty": "RSA", "kid": "rsa-1", "use": "sig", "alg": "RS256",
			"n": b64(rsaKey.N.Bytes()),
			"e": b64(big.NewInt(int64(rsaKey.E)).Bytes()),
		},
		map[string]string{"kty": "OKP", "kid": "ed-1", "crv": "Ed25519", "x": b64(edPub)},
		map[string]string{"kty": "EC", "kid": "ec-1", "crv": "P-256"},
	)

	v, err := NewVerifier(Config{Issuer: iss, JWKSURL: srv.URL, Now: func() time.Time { return now }})
	require.NoError(t, err)
	ctx := context.Background()

	rt := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, baseClaims())
	rt.Header["kid"] = "rsa-1"
	rs, err := rt.SignedString(rsaKey)
	require.NoError(t, err)

	et := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, baseClaims())
	et.Header["kid"] = "ed-1"
	es, err := et.SignedString(edPriv)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = v.Authenticate(ctx, rs)
		require.NoError(t, err)
		_, err = v.Authenticate(ctx, es)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, srv.hits.Load(), "keys are cached")

	// HS256 no se acepta cuando hay JWKS
	_, err = v.Authenticate(ctx, signHS(t, baseClaims()))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	ut := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, baseClaims())
	ut.Header["kid"] = "unknown"
	us, err := ut.SignedString(rsaKey)
	require.NoError(t, err)
	_, err = v.Authenticate(ctx, us)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWKS_FetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newJWKSSource(srv.URL, time.Minute, nil)
	_, err := s.key(context.Background(), "k")
	assert.Error(t, err)
}

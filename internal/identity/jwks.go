package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/dropDatabas3/accounts/internal/cache/memory"
	"github.com/dropDatabas3/accounts/internal/observability/logger"
	"golang.org/x/sync/singleflight"
)

const (
	jwksKey = "jwks"
	// piso entre refrescos forzados por kid desconocido
	minRefresh = 30 * time.Second
)

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Crv string `json:"crv"`
	X   string `json:"x"`
}

type keySet map[string]any // kid -> *rsa.PublicKey | ed25519.PublicKey

// jwksSource descarga y cachea las claves públicas del IdP.
type jwksSource struct {
	url    string
	ttl    time.Duration
	client *http.Client
	cache  *memory.Cache[keySet]
	group  singleflight.Group

	mu          sync.Mutex
	lastRefresh time.Time
}

func newJWKSSource(url string, ttl time.Duration, client *http.Client) *jwksSource {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &jwksSource{url: url, ttl: ttl, client: client, cache: memory.New[keySet](ttl)}
}

func (s *jwksSource) key(ctx context.Context, kid string) (any, error) {
	set, ok := s.cache.Get(jwksKey)
	if !ok {
		var err error
		if set, err = s.refresh(ctx); err != nil {
			return nil, err
		}
	}
	if k, ok := pick(set, kid); ok {
		return k, nil
	}

	// rotación en el IdP: un kid nuevo fuerza un refresco, con piso
	s.mu.Lock()
	stale := time.Since(s.lastRefresh) >= minRefresh
	s.mu.Unlock()
	if stale {
		set, err := s.refresh(ctx)
		if err != nil {
			return nil, err
		}
		if k, ok := pick(set, kid); ok {
			return k, nil
		}
	}
	return nil, fmt.Errorf("jwks: unknown kid %q", kid)
}

func pick(set keySet, kid string) (any, bool) {
	if kid != "" {
		k, ok := set[kid]
		return k, ok
	}
	// sin kid solo aceptamos un set de una clave
	if len(set) == 1 {
		for _, k := range set {
			return k, true
		}
	}
	return nil, false
}

func (s *jwksSource) refresh(ctx context.Context) (keySet, error) {
	v, err, _ := s.group.Do(jwksKey, func() (any, error) {
		set, err := s.fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(jwksKey, set, s.ttl)
		s.mu.Lock()
		s.lastRefresh = time.Now()
		s.mu.Unlock()
		logger.From(ctx).Debug("jwks refreshed",
			logger.Component("identity"),
			logger.Int("keys", len(set)),
		)
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(keySet), nil
}

func (s *jwksSource) fetch(ctx context.Context) (keySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks fetch: status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("jwks decode: %w", err)
	}

	set := make(keySet, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			logger.From(ctx).Warn("jwks key skipped",
				logger.Component("identity"),
				logger.String("kid", k.Kid),
				logger.Err(err),
			)
			continue
		}
		set[k.Kid] = pub
	}
	if len(set) == 0 {
		return nil, errors.New("jwks: no usable keys")
	}
	return set, nil
}

func (k jwk) publicKey() (any, error) {
	switch k.Kty {
	case "RSA":
		n, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, fmt.Errorf("rsa n: %w", err)
		}
		e, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, fmt.Errorf("rsa e: %w", err)
		}
		return &rsa.PublicKey{
			N: new(big.Int).SetBytes(n),
			E: int(new(big.Int).SetBytes(e).Int64()),
		}, nil
	case "OKP":
		if k.Crv != "Ed25519" {
			return nil, fmt.Errorf("unsupported curve %q", k.Crv)
		}
		x, err := base64.RawURLEncoding.DecodeString(k.X)
		if err != nil {
			return nil, fmt.Errorf("okp x: %w", err)
		}
		if len(x) != ed25519.PublicKeySize {
			return nil, errors.New("okp x: bad length")
		}
		return ed25519.PublicKey(x), nil
	}
	return nil, fmt.Errorf("unsupported kty %q", k.Kty)
}

// Package rate implementa rate limiting de ventana fija.
//
// Protege los endpoints de códigos contra fuerza bruta: un código de 6
// dígitos con 10 minutos de vida no resiste intentos ilimitados.
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result describe la decisión para un hit.
type Result struct {
	Allowed     bool
	Limit       int64
	Remaining   int64
	RetryAfter  time.Duration
	CurrentHits int64
}

// Limiter decide si key puede hacer otro request dentro de la ventana.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

func result(hits int64, limit int, ttl, window time.Duration) Result {
	max := int64(limit)
	res := Result{
		Allowed:     hits <= max,
		Limit:       max,
		Remaining:   max - hits,
		CurrentHits: hits,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = ttl
		if res.RetryAfter <= 0 {
			res.RetryAfter = window
		}
	}
	return res
}

// RedisLimiter: INCR + EXPIRE sobre una key por ventana.
type RedisLimiter struct {
	client *rdb.Client
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client *rdb.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{client: client, prefix: prefix, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	winStart := l.now().UTC().Truncate(window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate redis: %w", err)
	}

	remaining := ttl.Val()
	if incr.Val() == 1 {
		if err := l.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return Result{}, fmt.Errorf("rate redis expire: %w", err)
		}
		remaining = window
	}
	return result(incr.Val(), limit, remaining, window), nil
}

// Ping verifica la conexión (usado por /readyz).
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

package rate

import (
	"context"
	"time"

	"github.com/dropDatabas3/accounts/internal/cache/memory"
)

// MemoryLimiter es la variante in-process (un solo nodo o sin redis).
type MemoryLimiter struct {
	counters *memory.Counters
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{counters: memory.NewCounters()}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	hits, ttl := l.counters.Incr(key, window)
	return result(hits, limit, ttl, window), nil
}

// Package memory envuelve patrickmn/go-cache con API tipada.
package memory

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache es un cache in-process con TTL por entrada.
type Cache[V any] struct{ c *gocache.Cache }

// New crea un cache; las entradas vencidas se purgan cada minuto.
func New[V any](defaultTTL time.Duration) *Cache[V] {
	return &Cache[V]{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *Cache[V]) Get(k string) (V, bool) {
	var zero V
	v, ok := m.c.Get(k)
	if !ok {
		return zero, false
	}
	tv, ok := v.(V)
	if !ok {
		return zero, false
	}
	return tv, true
}

func (m *Cache[V]) Set(k string, v V, ttl time.Duration) { m.c.Set(k, v, ttl) }
func (m *Cache[V]) Delete(k string)                      { m.c.Delete(k) }
func (m *Cache[V]) Len() int                             { return m.c.ItemCount() }

// Counters son contadores de ventana fija: la ventana arranca con el
// primer Incr de la key y expira sola.
type Counters struct{ c *gocache.Cache }

func NewCounters() *Counters {
	return &Counters{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

// Incr suma 1 a key y retorna el conteo y cuánto falta para que la
// ventana expire.
func (m *Counters) Incr(key string, window time.Duration) (int64, time.Duration) {
	for {
		if err := m.c.Add(key, int64(1), window); err == nil {
			return 1, window
		}
		n, err := m.c.IncrementInt64(key, 1)
		if err != nil {
			// expiró entre Add e Increment
			continue
		}
		// el hit ya se contó: no se reintenta aunque la ventana venza acá
		return n, m.remaining(key)
	}
}

// remaining es lo que le queda a la ventana de key, 0 si ya venció.
func (m *Counters) remaining(key string) time.Duration {
	_, exp, ok := m.c.GetWithExpiration(key)
	if !ok {
		return 0
	}
	ttl := time.Until(exp)
	if ttl < 0 {
		ttl = 0
	}
	return ttl
}

package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/accounts/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insert(t *testing.T, s *CodeStore, key repository.CodeKey, code string, now time.Time) {
	t.Helper()
	_, err := s.Insert(context.Background(), repository.InsertCodeInput{
		Key: key, Code: code, ExpiresAt: now.Add(10 * time.Minute), Now: now,
	})
	require.NoError(t, err)
}

func TestCodeStore_InsertConflictsWhileActiveExists(t *testing.T) {
	ctx := context.Background()
	s := NewCodeStore()
	key := repository.CodeKey{Email: "a@example.com", Subject: "user_1"}

	insert(t, s, key, "123456", t0)
	_, err := s.Insert(ctx, repository.InsertCodeInput{Key: key, Code: "654321", ExpiresAt: t0.Add(time.Minute), Now: t0})
	assert.ErrorIs(t, err, repository.ErrConflict)

	n, err := s.InvalidateActive(ctx, key, t0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	insert(t, s, key, "654321", t0)
}

func TestCodeStore_InvalidateLeavesOtherPairs(t *testing.T) {
	ctx := context.Background()
	s := NewCodeStore()
	k1 := repository.CodeKey{Email: "a@example.com", Subject: "user_1"}
	k2 := repository.CodeKey{Email: "b@example.com", Subject: "user_1"}
	insert(t, s, k1, "111111", t0)
	insert(t, s, k2, "222222", t0)

	_, err := s.InvalidateActive(ctx, k1, t0)
	require.NoError(t, err)

	_, err = s.Consume(ctx, k2, "222222", t0.Add(time.Minute))
	assert.NoError(t, err)
}

func TestCodeStore_ConsumeLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewCodeStore()
	key := repository.CodeKey{Email: "a@example.com", Subject: "user_1"}
	insert(t, s, key, "123456", t0)

	_, err := s.Consume(ctx, key, "000000", t0.Add(time.Minute))
	assert.ErrorIs(t, err, repository.ErrCodeUnusable)

	_, err = s.Consume(ctx, repository.CodeKey{Email: "a@example.com", Subject: "user_2"}, "123456", t0.Add(time.Minute))
	assert.ErrorIs(t, err, repository.ErrCodeUnusable)

	c, err := s.Consume(ctx, key, "123456", t0.Add(9*time.Minute))
	require.NoError(t, err)
	assert.True(t, c.Verified)
	require.NotNil(t, c.VerifiedAt)

	_, err = s.Consume(ctx, key, "123456", t0.Add(9*time.Minute))
	assert.ErrorIs(t, err, repository.ErrCodeUnusable)
}

func TestCodeStore_ConsumeExpired(t *testing.T) {
	s := NewCodeStore()
	key := repository.CodeKey{Email: "a@example.com", Subject: "user_1"}
	insert(t, s, key, "123456", t0)

	_, err := s.Consume(context.Background(), key, "123456", t0.Add(11*time.Minute))
	assert.ErrorIs(t, err, repository.ErrCodeUnusable)
}

func TestCodeStore_ConsumeExpiryIsStrict(t *testing.T) {
	ctx := context.Background()
	s := NewCodeStore()
	key := repository.CodeKey{Email: "a@example.com", Subject: "user_1"}
	insert(t, s, key, "123456", t0)
	expiresAt := t0.Add(10 * time.Minute)

	_, err := s.Consume(ctx, key, "123456", expiresAt)
	assert.ErrorIs(t, err, repository.ErrCodeUnusable)

	_, err = s.Consume(ctx, key, "123456", expiresAt.Add(-time.Nanosecond))
	assert.NoError(t, err)
}

func TestCodeStore_ConsumeConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewCodeStore()
	key := repository.CodeKey{Email: "a@example.com", Subject: "user_1"}
	insert(t, s, key, "123456", t0)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(ctx, key, "123456", t0.Add(time.Minute)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestCodeStore_Reap(t *testing.T) {
	ctx := context.Background()
	s := NewCodeStore()
	key := repository.CodeKey{Email: "a@example.com", Subject: "user_1"}
	insert(t, s, key, "111111", t0)
	_, err := s.InvalidateActive(ctx, key, t0)
	require.NoError(t, err)
	insert(t, s, key, "222222", t0.Add(30*time.Minute))

	n, err := s.Reap(ctx, t0.Add(20*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	left := s.Snapshot(key)
	require.Len(t, left, 1)
	assert.Equal(t, "222222", left[0].Code)

	// los reapeados no quedan vivos en el array
	for _, c := range s.items[len(s.items):cap(s.items)] {
		assert.Nil(t, c)
	}
}

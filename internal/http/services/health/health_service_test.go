package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestCheck(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		deps   Deps
		status string
		mongo  string
		redis  string
	}{
		{"all disabled", Deps{}, "ready", "disabled", "disabled"},
		{"all ok", Deps{DBCheck: ok, RedisCheck: ok}, "ready", "ok", "ok"},
		{"redis down", Deps{DBCheck: ok, RedisCheck: down}, "degraded", "ok", "error"},
		{"mongo down", Deps{DBCheck: down, RedisCheck: ok}, "unavailable", "error", "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewHealthService(tt.deps).Check(ctx)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.mongo, res.Components["mongo"].Status)
			assert.Equal(t, tt.redis, res.Components["redis"].Status)
		})
	}
}

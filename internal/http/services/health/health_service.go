// Package health contiene el service para health checks.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/accounts/internal/http/dto"
	"github.com/dropDatabas3/accounts/internal/observability/logger"
	"go.uber.org/zap"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contiene las dependencias inyectables para el health service.
// Un check nil se reporta como "disabled".
type Deps struct {
	Version    string
	DBCheck    func(ctx context.Context) error // crítico
	RedisCheck func(ctx context.Context) error // no crítico: el limiter falla abierto
	Timeout    time.Duration
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Second
	}
	return &healthService{deps: deps}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("health"),
		logger.Op("Check"),
	)

	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()

	response := dto.HealthResponse{
		Version:    s.deps.Version,
		Components: make(map[string]dto.HealthStatus, 2),
		Timestamp:  time.Now().UTC(),
	}

	critical := !s.probe(ctx, log, response.Components, "mongo", s.deps.DBCheck, "memory store")
	degraded := !s.probe(ctx, log, response.Components, "redis", s.deps.RedisCheck, "memory rate limiter")

	switch {
	case critical:
		response.Status = "unavailable"
	case degraded:
		response.Status = "degraded"
	default:
		response.Status = "ready"
	}
	return response
}

// probe ejecuta un check y anota el resultado. Devuelve false si falló.
func (s *healthService) probe(ctx context.Context, log *zap.Logger, out map[string]dto.HealthStatus, name string, check func(context.Context) error, disabledMsg string) bool {
	if check == nil {
		out[name] = dto.HealthStatus{Status: "disabled", Message: disabledMsg}
		return true
	}
	if err := check(ctx); err != nil {
		out[name] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
		log.Error(name+" unavailable", logger.Err(err))
		return false
	}
	out[name] = dto.HealthStatus{Status: "ok"}
	return true
}

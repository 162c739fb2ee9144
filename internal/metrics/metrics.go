// Package metrics define las métricas Prometheus del servicio.
//
// Los collectors son variables de paquete: incrementarlos sin haberlos
// registrado es inocuo, así los tests de services no necesitan registry.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	HTTPInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo",
	})

	CodesIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_codes_issued_total",
		Help: "Códigos emitidos por resultado",
	}, []string{"result"}) // sent|delivery_failed|error

	CodeAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_code_attempts_total",
		Help: "Intentos de verificación por resultado",
	}, []string{"result"}) // verified|rejected|malformed|error

	AccountsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accounts_created_total",
		Help: "Cuentas creadas por origen",
	}, []string{"origin"}) // signup|federated|sign_in|verification

	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifications_total",
		Help: "Emails enviados por template y resultado",
	}, []string{"template", "result"})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Requests rechazadas por el rate limiter",
	}, []string{"bucket"})
)

// Register registra todos los collectors en reg (default si nil).
// Los duplicados se ignoran para que Register sea idempotente.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		HTTPRequestsTotal, HTTPRequestDuration, HTTPInflight,
		CodesIssued, CodeAttempts, AccountsCreated, Notifications, RateLimited,
	} {
		if err := registerCollector(reg, c); err != nil {
			return err
		}
	}
	return nil
}

// Handler expone /metrics para el gatherer dado (default si nil).
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

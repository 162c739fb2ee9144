// Package server arma el grafo de dependencias del servicio a partir de la
// configuración: stores, identity, email, rate limiting, services y router.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropDatabas3/accounts/internal/config"
	"github.com/dropDatabas3/accounts/internal/domain/repository"
	"github.com/dropDatabas3/accounts/internal/email"
	accountsctrl "github.com/dropDatabas3/accounts/internal/http/controllers/accounts"
	healthctrl "github.com/dropDatabas3/accounts/internal/http/controllers/health"
	verificationctrl "github.com/dropDatabas3/accounts/internal/http/controllers/verification"
	mw "github.com/dropDatabas3/accounts/internal/http/middlewares"
	"github.com/dropDatabas3/accounts/internal/http/router"
	accountssvc "github.com/dropDatabas3/accounts/internal/http/services/accounts"
	healthsvc "github.com/dropDatabas3/accounts/internal/http/services/health"
	verificationsvc "github.com/dropDatabas3/accounts/internal/http/services/verification"
	"github.com/dropDatabas3/accounts/internal/identity"
	"github.com/dropDatabas3/accounts/internal/metrics"
	"github.com/dropDatabas3/accounts/internal/observability/logger"
	"github.com/dropDatabas3/accounts/internal/rate"
	"github.com/dropDatabas3/accounts/internal/store/memory"
	mongostore "github.com/dropDatabas3/accounts/internal/store/mongo"
)

// Stores agrupa los repositorios activos y cómo cerrarlos.
type Stores struct {
	Accounts repository.AccountRepository
	Codes    repository.VerificationCodeRepository
	// Mongo es nil cuando se usan los stores en memoria.
	Mongo *mongostore.Client
}

// Close libera la conexión a Mongo si la hay.
func (s *Stores) Close(ctx context.Context) error {
	if s.Mongo == nil {
		return nil
	}
	return s.Mongo.Close(ctx)
}

// OpenStores conecta a Mongo o, sin URI, cae a los stores en memoria.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	log := logger.Named("wiring")
	if cfg.Mongo.URI == "" {
		log.Warn("mongo.uri empty: using in-memory stores, data is lost on restart")
		return &Stores{
			Accounts: memory.NewAccountStore(),
			Codes:    memory.NewCodeStore(),
		}, nil
	}

	cli, err := mongostore.Connect(ctx, mongostore.Config{
		URI:             cfg.Mongo.URI,
		Database:        cfg.Mongo.Database,
		MaxPoolSize:     cfg.Mongo.MaxPoolSize,
		ConnectTimeout:  cfg.Mongo.ConnectTimeout,
		SelectorTimeout: cfg.Mongo.SelectorTimeout,
	})
	if err != nil {
		return nil, err
	}
	log.Info("mongo connected", logger.String("database", cfg.Mongo.Database))
	return &Stores{Accounts: cli.Accounts(), Codes: cli.Codes(), Mongo: cli}, nil
}

// NewNotifier elige SMTP o el sender de logs según smtp.disabled.
func NewNotifier(cfg *config.Config) (*email.Notifier, error) {
	var sender email.Sender = email.LogSender{}
	if !cfg.SMTP.Disabled {
		s, err := email.NewSMTPSender(email.SMTPConfig{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			From:               cfg.SMTP.From,
			User:               cfg.SMTP.Username,
			Pass:               cfg.SMTP.Password,
			TLSMode:            cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
			Timeout:            cfg.SMTP.Timeout,
		})
		if err != nil {
			return nil, err
		}
		sender = s
	}
	return email.NewNotifier(sender, email.NotifierConfig{
		Brand:   cfg.App.Brand,
		AppURL:  cfg.App.AppURL,
		CodeTTL: cfg.Verification.CodeTTL,
	})
}

// App es el servicio armado y listo para servir.
type App struct {
	Handler http.Handler
	Stores  *Stores

	redis *rdb.Client
}

// Close cierra redis y Mongo. Se llama después de apagar el http.Server.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.Stores.Close(ctx))
	return errors.Join(errs...)
}

// Build construye el handler HTTP con todas las dependencias.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.Named("wiring")

	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &App{Stores: stores}
	fail := func(err error) (*App, error) {
		_ = app.Close(context.Background())
		return nil, err
	}

	if stores.Mongo != nil && cfg.Mongo.EnsureIndexes {
		if err := stores.Mongo.EnsureIndexes(ctx); err != nil {
			return fail(fmt.Errorf("ensure indexes: %w", err))
		}
	}

	verifier, err := identity.NewVerifier(identity.Config{
		Issuer:          cfg.Identity.Issuer,
		Audience:        cfg.Identity.Audience,
		JWKSURL:         cfg.Identity.JWKSURL,
		HS256Secret:     cfg.Identity.HS256Secret,
		JWKSTTL:         cfg.Identity.JWKSTTL,
		FederationClaim: cfg.Identity.FederationClaim,
		Leeway:          cfg.Identity.Leeway,
	})
	if err != nil {
		return fail(err)
	}

	notifier, err := NewNotifier(cfg)
	if err != nil {
		return fail(err)
	}

	// Rate limiting: redis si hay addr, si no memoria.
	var limiter rate.Limiter
	var redisCheck func(context.Context) error
	if cfg.Rate.Enabled {
		if cfg.Rate.Redis.Addr != "" {
			app.redis = rdb.NewClient(&rdb.Options{
				Addr:     cfg.Rate.Redis.Addr,
				Password: cfg.Rate.Redis.Password,
				DB:       cfg.Rate.Redis.DB,
			})
			rl := rate.NewRedisLimiter(app.redis, cfg.Rate.Redis.Prefix)
			limiter, redisCheck = rl, rl.Ping
			log.Info("rate limiter: redis", zap.String("addr", cfg.Rate.Redis.Addr))
		} else {
			limiter = rate.NewMemoryLimiter()
			log.Info("rate limiter: memory")
		}
	}

	var dbCheck func(context.Context) error
	if stores.Mongo != nil {
		dbCheck = stores.Mongo.Ping
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fail(fmt.Errorf("register metrics: %w", err))
		}
		metricsHandler = metrics.Handler(prometheus.DefaultGatherer)
	}

	accounts := accountssvc.NewService(accountssvc.Deps{
		Accounts:       stores.Accounts,
		Notifier:       notifier,
		AllowSelfAdmin: cfg.Accounts.AllowSelfAdmin,
	})
	verification := verificationsvc.NewService(verificationsvc.Deps{
		Codes:    stores.Codes,
		Accounts: stores.Accounts,
		Notifier: notifier,
		CodeTTL:  cfg.Verification.CodeTTL,
	})
	health := healthsvc.NewHealthService(healthsvc.Deps{
		Version:    cfg.App.Version,
		DBCheck:    dbCheck,
		RedisCheck: redisCheck,
	})

	app.Handler = router.New(router.Deps{
		Accounts:      accountsctrl.NewAccountsController(accounts),
		Verification:  verificationctrl.NewVerificationController(verification),
		Health:        healthctrl.NewHealthController(health),
		Identity:      verifier,
		SessionCookie: cfg.Identity.SessionCookie,
		CORSOrigins:   cfg.Server.CORSAllowedOrigins,
		IssueLimit: mw.RateLimitConfig{
			Limiter: limiter, Bucket: "issue",
			Limit: cfg.Rate.Issue.Limit, Window: cfg.Rate.Issue.Window,
		},
		VerifyLimit: mw.RateLimitConfig{
			Limiter: limiter, Bucket: "verify",
			Limit: cfg.Rate.Verify.Limit, Window: cfg.Rate.Verify.Window,
		},
		MetricsHandler: metricsHandler,
	})
	return app, nil
}

// Package config carga la configuración del servicio: defaults, config.yaml
// opcional y overrides por variables de entorno, en ese orden.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
		Version  string `yaml:"version"`
		// Marca y URL que aparecen en los emails.
		Brand  string `yaml:"brand"`
		AppURL string `yaml:"app_url"`
	} `yaml:"app"`

	Server struct {
		Addr               string        `yaml:"addr"`
		CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
		ReadTimeout        time.Duration `yaml:"read_timeout"`
		WriteTimeout       time.Duration `yaml:"write_timeout"`
		ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	// Mongo: URI vacía ⇒ stores en memoria (solo dev/test).
	Mongo struct {
		URI             string        `yaml:"uri"`
		Database        string        `yaml:"database"`
		MaxPoolSize     uint64        `yaml:"max_pool_size"`
		ConnectTimeout  time.Duration `yaml:"connect_timeout"`
		SelectorTimeout time.Duration `yaml:"selector_timeout"`
		EnsureIndexes   bool          `yaml:"ensure_indexes"`
	} `yaml:"mongo"`

	Identity struct {
		Issuer          string        `yaml:"issuer"`
		Audience        string        `yaml:"audience"`
		JWKSURL         string        `yaml:"jwks_url"`
		HS256Secret     string        `yaml:"hs256_secret"` // solo dev/test
		JWKSTTL         time.Duration `yaml:"jwks_ttl"`
		FederationClaim string        `yaml:"federation_claim"`
		Leeway          time.Duration `yaml:"leeway"`
		// Cookie de sesión aceptada cuando no llega Authorization.
		SessionCookie string `yaml:"session_cookie"`
	} `yaml:"identity"`

	SMTP struct {
		Disabled           bool          `yaml:"disabled"` // true ⇒ los emails solo se loguean
		Host               string        `yaml:"host"`
		Port               int           `yaml:"port"`
		Username           string        `yaml:"username"`
		Password           string        `yaml:"password"`
		From               string        `yaml:"from"`
		TLS                string        `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool          `yaml:"insecure_skip_verify"` // sólo dev
		Timeout            time.Duration `yaml:"timeout"`
	} `yaml:"smtp"`

	Verification struct {
		CodeTTL time.Duration `yaml:"code_ttl"`
	} `yaml:"verification"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Redis   struct {
			Addr     string `yaml:"addr"` // vacío ⇒ limiter en memoria
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Issue  Bucket `yaml:"issue"`
		Verify Bucket `yaml:"verify"`
	} `yaml:"rate"`

	Accounts struct {
		AllowSelfAdmin bool `yaml:"allow_self_admin"`
	} `yaml:"accounts"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// Bucket es el límite de un grupo de endpoints.
type Bucket struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// Default devuelve la configuración por defecto.
func Default() *Config {
	var c Config
	c.App.Env = "dev"
	c.App.LogLevel = "info"
	c.App.Brand = "Aeronomy"

	c.Server.Addr = ":8080"
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 15 * time.Second
	c.Server.ShutdownTimeout = 15 * time.Second

	c.Mongo.Database = "accounts"
	c.Mongo.MaxPoolSize = 50
	c.Mongo.ConnectTimeout = 10 * time.Second
	c.Mongo.SelectorTimeout = 5 * time.Second
	c.Mongo.EnsureIndexes = true

	c.Identity.JWKSTTL = time.Hour
	c.Identity.FederationClaim = "oauth_provider"
	c.Identity.Leeway = 30 * time.Second
	c.Identity.SessionCookie = "__session"

	c.SMTP.Port = 587
	c.SMTP.TLS = "auto"
	c.SMTP.Timeout = 10 * time.Second

	c.Verification.CodeTTL = 10 * time.Minute

	c.Rate.Enabled = true
	c.Rate.Redis.Prefix = "accounts:rl:"
	c.Rate.Issue = Bucket{Limit: 5, Window: 10 * time.Minute}
	c.Rate.Verify = Bucket{Limit: 10, Window: time.Minute}

	c.Accounts.AllowSelfAdmin = true
	c.Metrics.Enabled = true
	return &c
}

// Load aplica defaults, el YAML en path (si existe) y las variables de entorno.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// sin archivo: defaults + env
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}
	if v, ok := getEnvStr("SERVICE_VERSION"); ok {
		c.App.Version = v
	}
	if v, ok := getEnvStr("APP_BRAND"); ok {
		c.App.Brand = v
	}
	if v, ok := getEnvStr("APP_URL"); ok {
		c.App.AppURL = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	} else if v, ok := getEnvStr("PORT"); ok {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvDur("SERVER_READ_TIMEOUT"); ok {
		c.Server.ReadTimeout = v
	}
	if v, ok := getEnvDur("SERVER_WRITE_TIMEOUT"); ok {
		c.Server.WriteTimeout = v
	}
	if v, ok := getEnvDur("SERVER_SHUTDOWN_TIMEOUT"); ok {
		c.Server.ShutdownTimeout = v
	}

	// MONGO
	if v, ok := getEnvStr("MONGO_URI"); ok {
		c.Mongo.URI = v
	} else if v, ok := getEnvStr("MONGODB_URI"); ok {
		c.Mongo.URI = v
	}
	if v, ok := getEnvStr("MONGO_DATABASE"); ok {
		c.Mongo.Database = v
	}
	if v, ok := getEnvInt("MONGO_MAX_POOL_SIZE"); ok && v > 0 {
		c.Mongo.MaxPoolSize = uint64(v)
	}
	if v, ok := getEnvDur("MONGO_CONNECT_TIMEOUT"); ok {
		c.Mongo.ConnectTimeout = v
	}
	if v, ok := getEnvBool("MONGO_ENSURE_INDEXES"); ok {
		c.Mongo.EnsureIndexes = v
	}

	// IDENTITY
	if v, ok := getEnvStr("IDENTITY_ISSUER"); ok {
		c.Identity.Issuer = v
	}
	if v, ok := getEnvStr("IDENTITY_AUDIENCE"); ok {
		c.Identity.Audience = v
	}
	if v, ok := getEnvStr("IDENTITY_JWKS_URL"); ok {
		c.Identity.JWKSURL = v
	}
	if v, ok := getEnvStr("IDENTITY_HS256_SECRET"); ok {
		c.Identity.HS256Secret = v
	}
	if v, ok := getEnvDur("IDENTITY_JWKS_TTL"); ok {
		c.Identity.JWKSTTL = v
	}
	if v, ok := getEnvStr("IDENTITY_FEDERATION_CLAIM"); ok {
		c.Identity.FederationClaim = v
	}
	if v, ok := getEnvStr("IDENTITY_SESSION_COOKIE"); ok {
		c.Identity.SessionCookie = v
	}

	// SMTP
	if v, ok := getEnvBool("SMTP_DISABLED"); ok {
		c.SMTP.Disabled = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}

	// VERIFICATION
	if v, ok := getEnvDur("VERIFICATION_CODE_TTL"); ok {
		c.Verification.CodeTTL = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Rate.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Rate.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Rate.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Rate.Redis.Prefix = v
	}
	if v, ok := getEnvInt("RATE_ISSUE_LIMIT"); ok {
		c.Rate.Issue.Limit = v
	}
	if v, ok := getEnvDur("RATE_ISSUE_WINDOW"); ok {
		c.Rate.Issue.Window = v
	}
	if v, ok := getEnvInt("RATE_VERIFY_LIMIT"); ok {
		c.Rate.Verify.Limit = v
	}
	if v, ok := getEnvDur("RATE_VERIFY_WINDOW"); ok {
		c.Rate.Verify.Window = v
	}

	// ACCOUNTS / METRICS
	if v, ok := getEnvBool("ACCOUNTS_ALLOW_SELF_ADMIN"); ok {
		c.Accounts.AllowSelfAdmin = v
	}
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = v
	}
}

// Validate chequea los valores sin los que el servicio no puede arrancar.
func (c *Config) Validate() error {
	var errs []error

	switch c.App.Env {
	case "dev", "staging", "prod":
	default:
		errs = append(errs, fmt.Errorf("app.env must be dev, staging or prod (got %q)", c.App.Env))
	}

	if c.Identity.JWKSURL == "" && c.Identity.HS256Secret == "" {
		errs = append(errs, errors.New("identity: jwks_url or hs256_secret is required"))
	}
	if c.App.Env == "prod" {
		if c.Identity.HS256Secret != "" && c.Identity.JWKSURL == "" {
			errs = append(errs, errors.New("identity: hs256_secret is not allowed in prod"))
		}
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required in prod"))
		}
	}
	if c.Mongo.URI != "" && c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo.database is required"))
	}

	if !c.SMTP.Disabled {
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			errs = append(errs, errors.New("smtp: host and from are required (or set smtp.disabled)"))
		}
		switch c.SMTP.TLS {
		case "auto", "starttls", "ssl", "none":
		default:
			errs = append(errs, fmt.Errorf("smtp.tls must be auto, starttls, ssl or none (got %q)", c.SMTP.TLS))
		}
	}

	if c.Verification.CodeTTL <= 0 {
		errs = append(errs, errors.New("verification.code_ttl must be positive"))
	}
	if c.Rate.Enabled {
		for name, b := range map[string]Bucket{"issue": c.Rate.Issue, "verify": c.Rate.Verify} {
			if b.Limit <= 0 || b.Window <= 0 {
				errs = append(errs, fmt.Errorf("rate.%s: limit and window must be positive", name))
			}
		}
	}

	return errors.Join(errs...)
}

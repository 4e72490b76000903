package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Cart storage drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (DENIM_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (DENIM_DATABASE_URL or DATABASE_URL); enables durable orders and promo codes" flag:"database-url"`
	CatalogFile string `usage:"Product catalog JSON file; the embedded catalog is used when empty" flag:"catalog-file"`
	Storage     StorageConfig
	Session     SessionConfig
	Checkout    CheckoutConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// StorageConfig selects and configures the cart snapshot backend.
type StorageConfig struct {
	Driver        string        `default:"memory" usage:"Cart storage driver: memory, file, redis or postgres"`
	Dir           string        `default:"data/carts" usage:"Snapshot directory of the file driver"`
	RedisURL      string        `usage:"Redis connection URL (DENIM_STORAGE_REDISURL or REDIS_URL); overrides address, password and db" flag:"redis-url"`
	RedisAddr     string        `default:"localhost:6379" usage:"Redis address"`
	RedisPassword string        `usage:"Redis password"`
	RedisDB       int           `default:"0" usage:"Redis database number"`
	TTL           time.Duration `default:"720h" usage:"Expiry of Redis cart snapshots; zero keeps them forever"`
}

// SessionConfig controls cart tokens and in-memory session lifetime.
type SessionConfig struct {
	Secret        string        `usage:"HMAC secret signing cart tokens (DENIM_SESSION_SECRET); random per process when empty"`
	IdleTTL       time.Duration `default:"30m" usage:"Idle time after which a session leaves memory"`
	SweepInterval time.Duration `default:"1m" usage:"Interval of the idle session sweep"`
	CookieName    string        `default:"cart" usage:"Cookie mirroring the cart token"`
	SecureCookie  bool          `default:"false" usage:"Mark the cart cookie Secure" flag:"secure-cookie"`
	CookieMaxAge  time.Duration `default:"720h" usage:"Lifetime of the cart cookie"`
}

// CheckoutConfig controls order placement.
type CheckoutConfig struct {
	LuhnCheck bool `default:"false" usage:"Validate card numbers, expiry and CVV instead of presence only" flag:"luhn-check"`
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`

	// Platforms such as Railway and Render terminate TLS in a proxy.
	TrustProxy bool `default:"true" usage:"Key clients by X-Forwarded-For or X-Real-IP" flag:"trust-proxy"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "DENIM",
		Files:     []string{"config.yaml", "/etc/denim/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports inconsistent settings.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverRedis:
	case DriverFile:
		if c.Storage.Dir == "" {
			return errors.New("file storage requires a directory: set DENIM_STORAGE_DIR")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("postgres storage requires a database URL: set DENIM_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Session.IdleTTL <= 0 || c.Session.SweepInterval <= 0 {
		return errors.New("session idle TTL and sweep interval must be positive")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's DENIM_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.Storage.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.Storage.RedisURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

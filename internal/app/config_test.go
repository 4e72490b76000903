package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:      "0.0.0.0:8080",
		Storage:   StorageConfig{Driver: DriverMemory, Dir: "data/carts"},
		Session:   SessionConfig{IdleTTL: 30 * time.Minute, SweepInterval: time.Minute},
		RateLimit: RateLimitConfig{Max: 100, Window: time.Minute},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "memory", mutate: func(*Config) {}},
		{name: "redis", mutate: func(c *Config) { c.Storage.Driver = DriverRedis }},
		{name: "file", mutate: func(c *Config) { c.Storage.Driver = DriverFile }},
		{
			name: "file without dir",
			mutate: func(c *Config) {
				c.Storage.Driver = DriverFile
				c.Storage.Dir = ""
			},
			wantErr: "requires a directory",
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Storage.Driver = DriverPostgres },
			wantErr: "requires a database URL",
		},
		{
			name: "postgres",
			mutate: func(c *Config) {
				c.Storage.Driver = DriverPostgres
				c.DatabaseURL = "postgres://localhost/denim"
			},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Storage.Driver = "etcd" },
			wantErr: `unknown storage driver "etcd"`,
		},
		{
			name:    "zero idle ttl",
			mutate:  func(c *Config) { c.Session.IdleTTL = 0 },
			wantErr: "idle TTL",
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.RateLimit.Max = 0 },
			wantErr: "rate limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/denim")
	t.Setenv("REDIS_URL", "redis://platform:6379/0")
	t.Setenv("PORT", "9090")

	cfg := validConfig()
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://platform/denim", cfg.DatabaseURL)
	assert.Equal(t, "redis://platform:6379/0", cfg.Storage.RedisURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestConfig_ApplyPlatformDefaults_KeepsExplicit(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/denim")
	t.Setenv("PORT", "9090")

	cfg := validConfig()
	cfg.Addr = "127.0.0.1:7000"
	cfg.DatabaseURL = "postgres://explicit/denim"
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://explicit/denim", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}

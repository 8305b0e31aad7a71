package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, EnvDevelopment, cfg.Env)
	require.Equal(t, "/api/v1", cfg.APIPrefix)
	require.Equal(t, 168*time.Hour, cfg.JWTExpiresIn)
	require.Equal(t, time.Minute, cfg.RateLimitWindow)
	require.Equal(t, 100, cfg.RateLimitMax)
	require.Equal(t, 10*time.Minute, cfg.RateLimitSweepInterval)
	require.Equal(t, RateLimitStoreMemory, cfg.RateLimitStore)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.Greater(t, cfg.ServerWriteTimeout, cfg.RequestTimeout)
	require.Equal(t, "localhost:3000", cfg.Addr())
	require.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "Production")
	t.Setenv("API_PREFIX", "api/v2/")
	t.Setenv("JWT_EXPIRES_IN", "15m")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	require.True(t, cfg.IsProduction())
	require.Equal(t, "/api/v2", cfg.APIPrefix)
	require.Equal(t, 15*time.Minute, cfg.JWTExpiresIn)
	require.Equal(t, 5, cfg.RateLimitMax)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadRejectsUntypedTokenLifetime(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_EXPIRES_IN", "604800")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env:             EnvTest,
			Port:            3000,
			DatabaseURL:     "memory://",
			DBMaxConns:      10,
			DBMinConns:      2,
			JWTSecret:       "secret",
			JWTExpiresIn:    time.Hour,
			LogLevel:        "info",
			RateLimitWindow: time.Minute,
			RateLimitMax:    10,
			RateLimitStore:  RateLimitStoreMemory,
			RequestTimeout:  time.Second,
		}
	}

	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"unknown env":        func(c *Config) { c.Env = "staging" },
		"zero lifetime":      func(c *Config) { c.JWTExpiresIn = 0 },
		"bad log level":      func(c *Config) { c.LogLevel = "trace" },
		"zero window":        func(c *Config) { c.RateLimitWindow = 0 },
		"zero max":           func(c *Config) { c.RateLimitMax = 0 },
		"redis without url":  func(c *Config) { c.RateLimitStore = RateLimitStoreRedis },
		"unknown store":      func(c *Config) { c.RateLimitStore = "memcached" },
		"port out of range":  func(c *Config) { c.Port = 70000 },
		"min above max":      func(c *Config) { c.DBMinConns = 20 },
		"negative auth rpm":  func(c *Config) { c.AuthRateLimitRPM = -1 },
		"zero request limit": func(c *Config) { c.RequestTimeout = 0 },
		"short write limit":  func(c *Config) { c.ServerWriteTimeout = c.RequestTimeout },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

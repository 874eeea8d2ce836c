// Package config assembles runtime configuration from the environment.
// A .env file is honored in development via godotenv; real deployments set
// the variables directly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete api-server configuration.
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Redis    RedisConfig
	LogLevel string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig holds the token-acceptance settings. When Issuer or JWKSURL is
// empty but TenantID is set, the Microsoft identity-platform defaults for
// that tenant are derived.
type AuthConfig struct {
	TenantID     string
	Issuer       string
	Audience     string
	JWKSURL      string
	RequiredRole string

	Skew          time.Duration
	RefreshOnMiss bool
	RefreshCron   string
	CacheTTL      time.Duration
}

// RedisConfig holds the optional shared JWKS document cache. Disabled when
// Addr is empty.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            envStr("HOST", "0.0.0.0"),
			Port:            envInt("PORT", 8080),
			ReadTimeout:     envDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    envDuration("WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Auth: AuthConfig{
			TenantID:      envStr("TENANT_ID", ""),
			Issuer:        envStr("ISSUER", ""),
			Audience:      envStr("AUDIENCE", ""),
			JWKSURL:       envStr("JWKS_URL", ""),
			RequiredRole:  envStr("REQUIRED_ROLE", "Task.HelloWorld"),
			Skew:          envDuration("CLOCK_SKEW", 30*time.Second),
			RefreshOnMiss: envBool("JWKS_REFRESH_ON_MISS", true),
			RefreshCron:   envStr("JWKS_REFRESH_CRON", ""),
			CacheTTL:      envDuration("JWKS_CACHE_TTL", 12*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     envStr("REDIS_ADDR", ""),
			Password: envStr("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
		},
		LogLevel: envStr("LOG_LEVEL", "info"),
	}

	if cfg.Auth.Issuer == "" && cfg.Auth.TenantID != "" {
		cfg.Auth.Issuer = fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", cfg.Auth.TenantID)
	}
	if cfg.Auth.JWKSURL == "" && cfg.Auth.TenantID != "" {
		cfg.Auth.JWKSURL = fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", cfg.Auth.TenantID)
	}
	if cfg.Auth.Issuer == "" {
		return nil, fmt.Errorf("config: ISSUER or TENANT_ID must be set")
	}
	if cfg.Auth.Audience == "" {
		return nil, fmt.Errorf("config: AUDIENCE must be set")
	}
	return cfg, nil
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the crawd API server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Provider ProviderConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// AuthConfig configures verification of the identity provider's session
// tokens. The secret must match what the provider signs dashboard JWTs with.
type AuthConfig struct {
	SessionSecret string
}

// ProviderConfig points at the upstream streaming provider's REST API.
// TokenID/TokenSecret are basic-auth credentials; empty credentials leave
// the client constructed but every provisioning call failing softly.
type ProviderConfig struct {
	BaseURL       string
	TokenID       string
	TokenSecret   string
	RTMPURL       string
	Timeout       time.Duration
	LiveStatusTTL time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("CRAWD_PORT", 8080),
			Env:  envString("CRAWD_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			SessionSecret: os.Getenv("SESSION_JWT_SECRET"),
		},
		Provider: ProviderConfig{
			BaseURL:       envString("STREAM_PROVIDER_BASE_URL", "https://api.mux.com"),
			TokenID:       os.Getenv("STREAM_PROVIDER_TOKEN_ID"),
			TokenSecret:   os.Getenv("STREAM_PROVIDER_TOKEN_SECRET"),
			RTMPURL:       envString("STREAM_PROVIDER_RTMP_URL", "rtmp://global-live.mux.com:5222/app"),
			Timeout:       envDuration("STREAM_PROVIDER_TIMEOUT", 15*time.Second),
			LiveStatusTTL: envDuration("STREAM_PROVIDER_STATUS_TTL", 10*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("SESSION_JWT_SECRET is required")
	}

	if !strings.HasPrefix(c.Provider.BaseURL, "http://") && !strings.HasPrefix(c.Provider.BaseURL, "https://") {
		return fmt.Errorf("STREAM_PROVIDER_BASE_URL must start with http:// or https://, got %q", c.Provider.BaseURL)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// Package config provides environment-driven configuration for waymark.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL  Secret
	Port         string
	ListenHost   string
	CORSOrigins  []string
	ModelBaseURL string
	ModelAPIKey  Secret
	ModelName    string
	LogLevel     string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:  Secret(envOrDefault("DATABASE_URL", "")),
		Port:         envOrDefault("PORT", "3040"),
		ListenHost:   envOrDefault("LISTEN_HOST", "127.0.0.1"),
		ModelBaseURL: envOrDefault("MODEL_BASE_URL", "https://api.openai.com"),
		ModelAPIKey:  Secret(envOrDefault("MODEL_API_KEY", "")),
		ModelName:    envOrDefault("MODEL_NAME", "gpt-4o-mini"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3002")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

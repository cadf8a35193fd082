package config_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/waymarkhq/waymark/internal/config"
)

// setBaseEnv supplies the minimum valid environment; t.Setenv prevents
// t.Parallel in these tests.
func setBaseEnv(t *testing.T) {
	t.Helper()

	t.Setenv("DATABASE_URL", "postgres://waymark:pw@localhost:5432/waymark")
	t.Setenv("MODEL_BASE_URL", "http://localhost:11434")
	t.Setenv("MODEL_API_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("LISTEN_HOST", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("MODEL_NAME", "")
	t.Setenv("LOG_LEVEL", "")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "3040" || cfg.ListenHost != "127.0.0.1" {
		t.Errorf("network defaults wrong: %q %q", cfg.Port, cfg.ListenHost)
	}

	if cfg.Addr() != "127.0.0.1:3040" {
		t.Errorf("unexpected addr %q", cfg.Addr())
	}

	if cfg.ModelName != "gpt-4o-mini" || cfg.LogLevel != "info" {
		t.Errorf("model defaults wrong: %q %q", cfg.ModelName, cfg.LogLevel)
	}

	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3002" {
		t.Errorf("cors default wrong: %v", cfg.CORSOrigins)
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected an error without DATABASE_URL")
	}
}

func TestLoad_DatabaseValidation(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"postgres scheme", "postgres://u:p@localhost/db", false},
		{"postgresql scheme", "postgresql://u:p@localhost/db", false},
		{"wrong scheme", "mysql://u:p@localhost/db", true},
		{"missing host", "postgres:///db", true},
		{"remote sslmode disable", "postgres://u:p@db.internal/db?sslmode=disable", true},
		{"local sslmode disable", "postgres://u:p@localhost/db?sslmode=disable", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("DATABASE_URL", tt.url)

			_, err := config.Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_NetworkValidation(t *testing.T) {
	tests := []struct {
		name    string
		port    string
		host    string
		wantErr bool
	}{
		{"loopback", "3040", "127.0.0.1", false},
		{"all interfaces", "8080", "0.0.0.0", false},
		{"public address", "3040", "10.0.0.5", true},
		{"non-numeric port", "http", "127.0.0.1", true},
		{"port out of range", "70000", "127.0.0.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("PORT", tt.port)
			t.Setenv("LISTEN_HOST", tt.host)

			_, err := config.Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ModelValidation(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		apiKey  string
		wantErr bool
	}{
		{"localhost without key", "http://localhost:11434", "", false},
		{"remote https with key", "https://api.openai.com", "sk-test", false},
		{"remote http rejected", "http://api.openai.com", "sk-test", true},
		{"remote without key", "https://api.openai.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("MODEL_BASE_URL", tt.baseURL)
			t.Setenv("MODEL_API_KEY", tt.apiKey)

			_, err := config.Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_CORSValidation(t *testing.T) {
	tests := []struct {
		name    string
		origins string
		wantErr bool
	}{
		{"single origin", "http://localhost:3002", false},
		{"multiple origins with spaces", "http://localhost:3002, https://app.waymark.dev", false},
		{"wildcard", "*", true},
		{"glob", "https://*.waymark.dev", true},
		{"schemeless", "app.waymark.dev", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("CORS_ORIGINS", tt.origins)

			_, err := config.Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSecret_Redaction(t *testing.T) {
	t.Parallel()

	s := config.Secret("super-secret")

	if got := fmt.Sprintf("%s %v %#v", s, s, s); strings.Contains(got, "super-secret") {
		t.Errorf("secret leaked through formatting: %q", got)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(string(data), "super-secret") {
		t.Errorf("secret leaked through marshalling: %s", data)
	}

	if s.Value() != "super-secret" {
		t.Errorf("Value() must return the raw secret")
	}
}

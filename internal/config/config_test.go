package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CONFIG_FILE", "DB_URL", "MONGO_URL", "BIND_ADDR", "PORT", "LOG_LEVEL", "LOG_FORMAT", "API_KEYS", "CORS_ORIGINS", "SESSION_COUNT_MODE"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "sqlite://events.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 3000 || cfg.BindAddr != "0.0.0.0" {
		t.Fatalf("unexpected listen defaults %s", cfg.ListenAddr())
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected log defaults %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.SessionCountMode != "first_event" {
		t.Fatalf("SessionCountMode = %q", cfg.SessionCountMode)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.AuthEnabled() {
		t.Fatalf("auth must be disabled without API_KEYS")
	}
	if !cfg.AllowAllOrigins() {
		t.Fatalf("default CORS must allow all origins")
	}
}

func TestLoadRequiresDBURL(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DB_URL") {
		t.Fatalf("expected DB_URL error, got %v", err)
	}
}

func TestLoadMongoURLFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URL", "mongodb://localhost:27017/analytics")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBURL != "mongodb://localhost:27017/analytics" {
		t.Fatalf("DBURL = %q", cfg.DBURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://localhost/db")
	t.Setenv("MONGO_URL", "mongodb://ignored")
	t.Setenv("PORT", "8081")
	t.Setenv("BIND_ADDR", "127.0.0.1")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("API_KEYS", "dashboard:k1, ops:k2")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SESSION_COUNT_MODE", "per_type")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBURL != "postgres://localhost/db" {
		t.Fatalf("DBURL = %q", cfg.DBURL)
	}
	if cfg.ListenAddr() != "127.0.0.1:8081" {
		t.Fatalf("ListenAddr() = %q", cfg.ListenAddr())
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "text" {
		t.Fatalf("unexpected log config %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.APIKeys["k1"] != "dashboard" || cfg.APIKeys["k2"] != "ops" {
		t.Fatalf("APIKeys = %v", cfg.APIKeys)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" || cfg.AllowAllOrigins() {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.SessionCountMode != "per_type" {
		t.Fatalf("SessionCountMode = %q", cfg.SessionCountMode)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `dbURL: sqlite:///tmp/from-file.db
port: 4000
logFormat: text
apiKeys:
  secret-key: dashboard
corsOrigins:
  - https://site.example
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "5000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBURL != "sqlite:///tmp/from-file.db" {
		t.Fatalf("DBURL = %q", cfg.DBURL)
	}
	if cfg.Port != 5000 {
		t.Fatalf("env must override file port, got %d", cfg.Port)
	}
	if cfg.LogFormat != "text" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected log config %q/%q", cfg.LogFormat, cfg.LogLevel)
	}
	if cfg.APIKeys["secret-key"] != "dashboard" || !cfg.AuthEnabled() {
		t.Fatalf("APIKeys = %v", cfg.APIKeys)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://site.example" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("port: [1, 2"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port not a number", "PORT", "http"},
		{"port out of range", "PORT", "70000"},
		{"log level", "LOG_LEVEL", "loud"},
		{"log format", "LOG_FORMAT", "xml"},
		{"count mode", "SESSION_COUNT_MODE", "sometimes"},
		{"api key pair", "API_KEYS", "no-colon"},
		{"api key empty name", "API_KEYS", ":key"},
		{"cors origin without scheme", "CORS_ORIGINS", "site.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DB_URL", "sqlite://events.db")
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
server:
  port: "9090"
auth:
  jwt_secret: from-file
redis:
  addr: localhost:6379
quiz:
  ttl: 2m
storage:
  bucket: covers
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" || cfg.Storage.Bucket != "covers" {
		t.Fatalf("unexpected file values %+v", cfg)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Fatalf("expected env secret, got %q", cfg.Auth.JWTSecret)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.Server.AllowedOrigins)
	}
	if got := TTLDuration(cfg.Quiz.TTL, time.Minute); got != 2*time.Minute {
		t.Fatalf("expected 2m ttl, got %s", got)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://quiz@localhost/quiz")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Postgres.URL != "postgres://quiz@localhost/quiz" {
		t.Fatalf("expected env postgres url, got %q", cfg.Postgres.URL)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("soon", time.Second); got != time.Second {
		t.Fatalf("expected fallback for garbage, got %s", got)
	}
}

func TestValidateSecret(t *testing.T) {
	var cfg Config
	if err := cfg.ValidateSecret(); !errors.Is(err, ErrNoJWTSecret) {
		t.Fatalf("expected missing secret error, got %v", err)
	}
	cfg.Auth.JWTSecret = PlaceholderSecret
	if err := cfg.ValidateSecret(); !errors.Is(err, ErrPlaceholderSecret) {
		t.Fatalf("expected placeholder rejected, got %v", err)
	}
	cfg.Auth.JWTSecret = "a-real-secret"
	if err := cfg.ValidateSecret(); err != nil {
		t.Fatalf("expected real secret accepted, got %v", err)
	}
}

func TestShippedConfigUsesPlaceholderSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	if err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
	if err := cfg.ValidateSecret(); !errors.Is(err, ErrPlaceholderSecret) {
		t.Fatalf("shipped config should be refused until JWT_SECRET is set, got %v", err)
	}
}

func TestRequirePostgres(t *testing.T) {
	var cfg Config
	if err := cfg.RequirePostgres(); !errors.Is(err, ErrNoPostgres) {
		t.Fatalf("expected missing postgres error, got %v", err)
	}
	cfg.Postgres.URL = "postgres://quiz@localhost/quiz"
	if err := cfg.RequirePostgres(); err != nil {
		t.Fatalf("expected configured url accepted, got %v", err)
	}
}

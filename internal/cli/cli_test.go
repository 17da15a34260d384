package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"quiz-platform-service/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestSeedRequiresPostgres(t *testing.T) {
	t.Setenv("POSTGRES_URL", "")
	path := writeConfig(t, "auth:\n  jwt_secret: a-real-secret\n")

	cmd := NewSeedCmd(&path)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--instructor", "instructor-1"})
	cmd.SetContext(context.Background())

	err := cmd.Execute()
	if !errors.Is(err, config.ErrNoPostgres) {
		t.Fatalf("expected missing postgres error, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should be seeded, got output %q", out.String())
	}
}

func TestServeRefusesPlaceholderSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := writeConfig(t, "auth:\n  jwt_secret: change-me\n")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := runServer(context.Background(), cfg, "0"); !errors.Is(err, config.ErrPlaceholderSecret) {
		t.Fatalf("expected placeholder secret refused, got %v", err)
	}
}

func TestTokenRefusesPlaceholderSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := writeConfig(t, "auth:\n  jwt_secret: change-me\n")

	cmd := NewTokenCmd(&path)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--user", "u1", "--role", "student"})
	if err := cmd.Execute(); !errors.Is(err, config.ErrPlaceholderSecret) {
		t.Fatalf("expected placeholder secret refused, got %v", err)
	}
}

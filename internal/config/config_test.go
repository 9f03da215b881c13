package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADMIN_EMAILS", " Boss@Calivra.com , ops@calivra.com")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Address())
	}
	if cfg.JWTSecret == "" {
		t.Fatal("expected development jwt secret fallback")
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("expected 5m access ttl, got %s", cfg.AccessTokenTTL)
	}
	if cfg.TransactionLimit.String() != "500000" {
		t.Fatalf("expected default limit 500000, got %s", cfg.TransactionLimit)
	}
	if !cfg.IsAdminEmail("boss@calivra.com") || !cfg.IsAdminEmail("OPS@calivra.com") {
		t.Fatalf("expected admin emails to be normalized, got %v", cfg.AdminEmails)
	}
	if cfg.IsAdminEmail("user@calivra.com") {
		t.Fatal("unexpected admin match")
	}
}

func TestLoadProductionRequiresDatabase(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	_, err := Load()
	if err == nil {
		t.Fatal("expected missing database error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected error to mention DATABASE_URL, got %v", err)
	}
}

func TestLoadRejectsInvalidLimit(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DEFAULT_TRANSACTION_LIMIT", "lots")

	if _, err := Load(); err == nil {
		t.Fatal("expected invalid limit error")
	}
}

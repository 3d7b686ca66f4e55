package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORELINE_TENANTS", `{"acme":{"db_dsn":"postgres://x"}}`)
	t.Setenv("STORELINE_JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.App.Port)
	}
	if cfg.App.ServiceName != "storeline-api" {
		t.Fatalf("unexpected service name %q", cfg.App.ServiceName)
	}
	if cfg.Outbox.BatchSize != 50 {
		t.Fatalf("unexpected outbox batch size %d", cfg.Outbox.BatchSize)
	}
	if cfg.Redis.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("unexpected idempotency ttl %v", cfg.Redis.IdempotencyTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORELINE_TENANTS", `{"acme":{"db_dsn":"postgres://x"}}`)
	t.Setenv("STORELINE_JWT_SECRET", "test-secret")
	t.Setenv("STORELINE_PORT", "9091")
	t.Setenv("STORELINE_LOG_LEVEL", "debug")
	t.Setenv("STORELINE_OUTBOX_POLL_INTERVAL", "500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 9091 {
		t.Fatalf("expected port override, got %d", cfg.App.Port)
	}
	if cfg.App.LogLevel != "debug" {
		t.Fatalf("expected log level override, got %q", cfg.App.LogLevel)
	}
	if cfg.Outbox.PollInterval != 500*time.Millisecond {
		t.Fatalf("expected poll interval override, got %v", cfg.Outbox.PollInterval)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("STORELINE_TENANTS", "")
	t.Setenv("STORELINE_JWT_SECRET", "test-secret")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when tenant roster missing")
	}
}

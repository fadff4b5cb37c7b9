package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresAPIKey(t *testing.T) {
	t.Setenv("RUNWAY_API_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when RUNWAY_API_KEY is unset")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("RUNWAY_API_KEY", "key_test")
	t.Setenv("PORT", "")
	t.Setenv("RUNWAY_BASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("UPSTREAM_TIMEOUT_SECONDS", "")
	t.Setenv("POLL_INTERVAL_MS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.RunwayBaseURL != "https://api.dev.runwayml.com/v1" {
		t.Fatalf("RunwayBaseURL mismatch: %q", cfg.RunwayBaseURL)
	}
	if cfg.RunwayAPIVersion != "2024-11-06" {
		t.Fatalf("RunwayAPIVersion mismatch: %q", cfg.RunwayAPIVersion)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("RedisAddr should default to empty, got %q", cfg.RedisAddr)
	}
	if cfg.UpstreamTimeout != 30*time.Second {
		t.Fatalf("UpstreamTimeout = %v, want 30s", cfg.UpstreamTimeout)
	}
	if cfg.PollInterval != 4000*time.Millisecond {
		t.Fatalf("PollInterval = %v, want 4s", cfg.PollInterval)
	}
}

func TestLoadConfigHonorsOverrides(t *testing.T) {
	t.Setenv("RUNWAY_API_KEY", "key_test")
	t.Setenv("RUNWAY_BASE_URL", "https://runway.internal/v1")
	t.Setenv("REDIS_ADDR", "cache.internal:6379")
	t.Setenv("UPSTREAM_TIMEOUT_SECONDS", "10")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RunwayBaseURL != "https://runway.internal/v1" {
		t.Fatalf("RunwayBaseURL mismatch: %q", cfg.RunwayBaseURL)
	}
	if cfg.RedisAddr != "cache.internal:6379" {
		t.Fatalf("RedisAddr mismatch: %q", cfg.RedisAddr)
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Fatalf("UpstreamTimeout = %v, want 10s", cfg.UpstreamTimeout)
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "BACKEND_BASE_URL", "BACKEND_TIMEOUT", "CALENDAR_QUERY_WEEK_START", "CORS_ALLOWED_ORIGINS", "SESSION_TTL"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.BackendTimeout != 15*time.Second {
		t.Fatalf("expected default backend timeout, got %s", cfg.BackendTimeout)
	}
	if cfg.QueryWeekStart != "monday" {
		t.Fatalf("expected ISO week start by default, got %s", cfg.QueryWeekStart)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("expected default session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("BACKEND_BASE_URL", " https://clinic.example/api/ ")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("CALENDAR_QUERY_WEEK_START", "Sunday")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("SESSION_JANITOR_SCHEDULE", "*/2 * * * *")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CALENDAR_DAYS_COUNT", "5")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.BackendBaseURL != "https://clinic.example/api" {
		t.Fatalf("expected trimmed backend url, got %q", cfg.BackendBaseURL)
	}
	if cfg.BackendTimeout != 3*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.BackendTimeout)
	}
	if cfg.QueryWeekStart != "sunday" {
		t.Fatalf("expected lowercased week start, got %s", cfg.QueryWeekStart)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.JanitorSchedule != "*/2 * * * *" {
		t.Fatalf("expected janitor schedule override, got %s", cfg.JanitorSchedule)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected two CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate override, got %v", cfg.RateLimitRPS)
	}
	if cfg.DaysCount != 5 {
		t.Fatalf("expected days count override, got %d", cfg.DaysCount)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT_BURST", "many")
	t.Setenv("REDIS_TLS", "maybe")
	cfg := Load()
	if cfg.BackendTimeout != 15*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.BackendTimeout)
	}
	if cfg.RateLimitBurst != 40 {
		t.Fatalf("expected default burst, got %d", cfg.RateLimitBurst)
	}
	if cfg.RedisTLS {
		t.Fatalf("expected redis tls disabled")
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
	var nilCfg *Config
	if nilCfg.Location() != time.UTC {
		t.Fatalf("expected UTC for nil config")
	}
	cfg.Timezone = "UTC"
	if cfg.Location().String() != "UTC" {
		t.Fatalf("expected UTC location, got %s", cfg.Location())
	}
}

package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.ServerPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.ServerPort)
	}
	if cfg.StoreBackend != "postgres" {
		t.Errorf("expected default backend postgres, got %q", cfg.StoreBackend)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Errorf("expected default rate limit 120, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.OverdueAfterDays != 30 {
		t.Errorf("expected default overdue threshold 30, got %d", cfg.OverdueAfterDays)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("expected default db port 5432, got %d", cfg.Database.Port)
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		t.Errorf("expected default CORS origins")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.ServerPort)
	}
	if cfg.StoreBackend != "memory" {
		t.Errorf("expected backend memory, got %q", cfg.StoreBackend)
	}
	if cfg.OTELEndpoint != "collector:4318" {
		t.Errorf("expected OTLP endpoint collector:4318, got %q", cfg.OTELEndpoint)
	}
	want := []string{"https://app.example.com", "https://admin.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("expected %d origins, got %v", len(want), cfg.CORSAllowedOrigins)
	}
	for i, origin := range want {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Errorf("origin %d: expected %q, got %q", i, origin, cfg.CORSAllowedOrigins[i])
		}
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid port")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

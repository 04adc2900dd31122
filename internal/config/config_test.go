package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 42424 {
		t.Fatalf("expected default port 42424, got %d", cfg.Port)
	}
	if cfg.SessionTTL != 0 {
		t.Fatalf("session TTL should default to disabled, got %v", cfg.SessionTTL)
	}
	if cfg.EvictGrace != time.Second {
		t.Fatalf("expected 1s evict grace, got %v", cfg.EvictGrace)
	}
	if cfg.ServiceName != "hranad" {
		t.Fatalf("unexpected service name %q", cfg.ServiceName)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HRANAD_PORT", "9191")
	t.Setenv("HRANAD_DB_PATH", "/tmp/x.db")
	t.Setenv("HRANAD_SESSION_TTL", "5m")
	t.Setenv("OTEL_INSECURE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9191 {
		t.Fatalf("expected port 9191, got %d", cfg.Port)
	}
	if cfg.DBPath != "/tmp/x.db" {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.SessionTTL != 5*time.Minute {
		t.Fatalf("unexpected session ttl %v", cfg.SessionTTL)
	}
	if !cfg.OTELInsecure {
		t.Fatal("expected OTEL_INSECURE to apply")
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("HRANAD_PORT", "not-a-port")
	t.Setenv("HRANAD_READ_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 42424 {
		t.Fatalf("invalid int should fall back to default, got %d", cfg.Port)
	}
	if cfg.ReadTimeout != 30*time.Second {
		t.Fatalf("invalid duration should fall back to default, got %v", cfg.ReadTimeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"port out of range", Config{Port: 70000, MaxRequestBodyBytes: 1, EvictGrace: 1, ProbeTimeout: 1}},
		{"zero max body", Config{Port: 1, MaxRequestBodyBytes: 0, EvictGrace: 1, ProbeTimeout: 1}},
		{"zero evict grace", Config{Port: 1, MaxRequestBodyBytes: 1, EvictGrace: 0, ProbeTimeout: 1}},
		{"zero probe timeout", Config{Port: 1, MaxRequestBodyBytes: 1, EvictGrace: 1, ProbeTimeout: 0}},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

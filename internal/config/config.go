// Package config loads and validates daemon configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all daemon configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database settings.
	DBPath string // Path to the SQLite file; the containing directory is created on start.

	// Session settings.
	SessionTTL time.Duration // 0 disables expiry of never-closed streams.

	// Eviction settings.
	EvictGrace   time.Duration // Wait after each termination signal.
	ProbeTimeout time.Duration // Per-probe timeout against a prior instance.

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel            string
	MaxRequestBodyBytes int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                envInt("HRANAD_PORT", 42424),
		ReadTimeout:         envDuration("HRANAD_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        envDuration("HRANAD_WRITE_TIMEOUT", 30*time.Second),
		DBPath:              envStr("HRANAD_DB_PATH", ""),
		SessionTTL:          envDuration("HRANAD_SESSION_TTL", 0),
		EvictGrace:          envDuration("HRANAD_EVICT_GRACE", time.Second),
		ProbeTimeout:        envDuration("HRANAD_PROBE_TIMEOUT", time.Second),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        envBool("OTEL_INSECURE", false),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "hranad"),
		LogLevel:            envStr("HRANAD_LOG_LEVEL", "info"),
		MaxRequestBodyBytes: int64(envInt("HRANAD_MAX_REQUEST_BODY_BYTES", 4*1024*1024)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and sane.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: HRANAD_PORT out of range: %d", c.Port)
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: HRANAD_MAX_REQUEST_BODY_BYTES must be positive")
	}
	if c.EvictGrace <= 0 {
		return fmt.Errorf("config: HRANAD_EVICT_GRACE must be positive")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("config: HRANAD_PROBE_TIMEOUT must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

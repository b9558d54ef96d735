package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "FEED_FETCH_TIMEOUT", "FEED_MAX_BYTES", "BEST_DEALS_SCAN_LIMIT", "METRICS_ENABLED", "JWT_EXPIRES_IN"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DBDriver != "postgres" {
		t.Errorf("DBDriver = %q, want postgres", cfg.DBDriver)
	}
	if cfg.FeedFetchTimeout != 60*time.Second {
		t.Errorf("FeedFetchTimeout = %v, want 60s", cfg.FeedFetchTimeout)
	}
	if cfg.FeedMaxBytes != 50<<20 {
		t.Errorf("FeedMaxBytes = %d", cfg.FeedMaxBytes)
	}
	if cfg.BestDealsScanLimit != 500 {
		t.Errorf("BestDealsScanLimit = %d, want 500", cfg.BestDealsScanLimit)
	}
	if !cfg.MetricsEnabled {
		t.Error("MetricsEnabled should default to true")
	}
	if cfg.JWTExpirationDur != 24*time.Hour {
		t.Errorf("JWTExpirationDur = %v, want 24h", cfg.JWTExpirationDur)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("FEED_FETCH_TIMEOUT", "5s")
	t.Setenv("BEST_DEALS_SCAN_LIMIT", "50")
	t.Setenv("METRICS_ENABLED", "0")
	t.Setenv("JWT_EXPIRES_IN", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("DBDriver = %q, want sqlite", cfg.DBDriver)
	}
	if cfg.FeedFetchTimeout != 5*time.Second {
		t.Errorf("FeedFetchTimeout = %v, want 5s", cfg.FeedFetchTimeout)
	}
	if cfg.BestDealsScanLimit != 50 {
		t.Errorf("BestDealsScanLimit = %d, want 50", cfg.BestDealsScanLimit)
	}
	if cfg.MetricsEnabled {
		t.Error("MetricsEnabled should be false")
	}
	if cfg.JWTExpirationDur != 24*time.Hour {
		t.Errorf("invalid JWT_EXPIRES_IN should fall back to 24h, got %v", cfg.JWTExpirationDur)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown_driver", "DB_DRIVER", "mysql"},
		{"bad_timeout", "FEED_FETCH_TIMEOUT", "soon"},
		{"negative_timeout", "FEED_FETCH_TIMEOUT", "-1s"},
		{"zero_scan_limit", "BEST_DEALS_SCAN_LIMIT", "0"},
		{"bad_bool", "METRICS_ENABLED", "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{EnvCachePath, EnvCacheTTL, EnvRateLimit, EnvReliability} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CachePath != DefaultCachePath {
		t.Errorf("expected default cache path, got %q", cfg.CachePath)
	}
	if cfg.CacheTTL != DefaultCacheTTL {
		t.Errorf("expected default TTL, got %s", cfg.CacheTTL)
	}
	if cfg.RateLimit != DefaultRateLimit {
		t.Errorf("expected default rate limit, got %f", cfg.RateLimit)
	}
	if len(cfg.Reliability) != 0 {
		t.Errorf("expected empty reliability map, got %v", cfg.Reliability)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv(EnvCachePath, "/tmp/comps.json")
	t.Setenv(EnvCacheTTL, "6h")
	t.Setenv(EnvPerSourceTimeout, "10s")
	t.Setenv(EnvRateLimit, "5")
	t.Setenv(EnvReliability, "ebay:1.0, sportscardspro:0.6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CachePath != "/tmp/comps.json" {
		t.Errorf("cache path not read: %q", cfg.CachePath)
	}
	if cfg.CacheTTL != 6*time.Hour {
		t.Errorf("TTL not read: %s", cfg.CacheTTL)
	}
	if cfg.PerSourceTimeout != 10*time.Second {
		t.Errorf("timeout not read: %s", cfg.PerSourceTimeout)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("rate limit not read: %f", cfg.RateLimit)
	}
	if cfg.Reliability["ebay"] != 1.0 || cfg.Reliability["sportscardspro"] != 0.6 {
		t.Errorf("reliability not parsed: %v", cfg.Reliability)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv(EnvCacheTTL, "not-a-duration")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestParseReliability(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{"empty", "", false},
		{"single", "ebay:0.9", false},
		{"missing colon", "ebay0.9", true},
		{"bad weight", "ebay:heavy", true},
		{"zero weight", "ebay:0", true},
		{"negative weight", "ebay:-1", true},
		{"trailing comma", "ebay:0.9,", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseReliability(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseReliability(%q) err = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestParseReliability_NamesNormalized(t *testing.T) {
	rel, err := parseReliability(" EBay : 0.8 ")
	if err != nil {
		t.Fatalf("parseReliability: %v", err)
	}
	if rel["ebay"] != 0.8 {
		t.Errorf("expected lower-cased trimmed name, got %v", rel)
	}
}

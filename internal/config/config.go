// Package config loads runtime settings from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/slabworth/compengine/internal/aggregate"
)

// Environment variable names.
const (
	EnvCachePath        = "COMPENGINE_CACHE_PATH"
	EnvCacheTTL         = "COMPENGINE_CACHE_TTL"
	EnvPurgeSchedule    = "COMPENGINE_PURGE_SCHEDULE"
	EnvPerSourceTimeout = "COMPENGINE_SOURCE_TIMEOUT"
	EnvRateLimit        = "COMPENGINE_RATE_LIMIT"
	EnvReliability      = "COMPENGINE_RELIABILITY"
	EnvPostgresURL      = "COMPENGINE_POSTGRES_URL"
	EnvPopReportURL     = "COMPENGINE_POP_REPORT_URL"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultCachePath        = "data/cache/results.json"
	DefaultCacheTTL         = 24 * time.Hour
	DefaultPurgeSchedule    = "@hourly"
	DefaultPerSourceTimeout = 30 * time.Second
	DefaultRateLimit        = 2.0
)

// Config holds everything the engine needs at startup.
type Config struct {
	// CachePath is where the result cache persists. Empty disables
	// persistence.
	CachePath string

	// CacheTTL is how long a cached pricing result stays fresh.
	CacheTTL time.Duration

	// PurgeSchedule is the cron expression for the background cache
	// sweep.
	PurgeSchedule string

	// PerSourceTimeout bounds each source adapter call.
	PerSourceTimeout time.Duration

	// RateLimit caps adapter invocations per second.
	RateLimit float64

	// Reliability holds per-source weights for the point-estimate
	// fallback blend, parsed from "source:weight,source:weight".
	Reliability aggregate.Reliability

	// PostgresURL, when set, backs population snapshots with Postgres
	// instead of process memory.
	PostgresURL string

	// PopReportURL is the base URL of the population report site the
	// fallback scraper reads. Empty disables the scraper.
	PopReportURL string
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		CachePath:     getString(EnvCachePath, DefaultCachePath),
		PurgeSchedule: getString(EnvPurgeSchedule, DefaultPurgeSchedule),
		PostgresURL:   os.Getenv(EnvPostgresURL),
		PopReportURL:  os.Getenv(EnvPopReportURL),
		Reliability:   aggregate.Reliability{},
	}

	var err error
	if cfg.CacheTTL, err = getDuration(EnvCacheTTL, DefaultCacheTTL); err != nil {
		return nil, err
	}
	if cfg.PerSourceTimeout, err = getDuration(EnvPerSourceTimeout, DefaultPerSourceTimeout); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getFloat(EnvRateLimit, DefaultRateLimit); err != nil {
		return nil, err
	}
	if cfg.Reliability, err = parseReliability(os.Getenv(EnvReliability)); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return f, nil
}

// parseReliability parses "ebay:1.0,sportscardspro:0.6" into per-source
// weights. Unlisted sources keep the default weight of 1.0.
func parseReliability(spec string) (aggregate.Reliability, error) {
	rel := aggregate.Reliability{}
	if strings.TrimSpace(spec) == "" {
		return rel, nil
	}

	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, weight, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("parse %s: malformed pair %q", EnvReliability, pair)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(weight), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: weight in %q: %w", EnvReliability, pair, err)
		}
		if w <= 0 {
			return nil, fmt.Errorf("parse %s: weight in %q must be positive", EnvReliability, pair)
		}
		rel[strings.ToLower(strings.TrimSpace(name))] = w
	}
	return rel, nil
}

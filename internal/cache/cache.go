package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/slabworth/compengine/internal/model"
)

// Entry wraps a cached value with its expiry deadline. Expiry is
// strict: the entry is dead once now >= ExpiresAt, so a zero TTL
// produces an entry that is already expired when written.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// ResultCache is a TTL-keyed store for a source's prior answer to a
// given query. Backed by a JSON file so entries survive restarts; a
// corrupt or missing file starts fresh.
type ResultCache struct {
	path    string
	entries map[string]Entry
	now     func() time.Time
	mu      sync.RWMutex
}

// New creates a cache persisted at path. An empty path keeps the cache
// memory-only.
func New(path string) (*ResultCache, error) {
	c := &ResultCache{
		path:    path,
		entries: make(map[string]Entry),
		now:     time.Now,
	}

	if path != "" {
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			if err := json.Unmarshal(data, &c.entries); err != nil {
				// Ignore corrupt cache, start fresh
				c.entries = make(map[string]Entry)
			}
		}
	}

	return c, nil
}

// SetClock overrides the cache's time source. Tests use this to pin
// expiry behavior without sleeping.
func (c *ResultCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get unmarshals the live entry for source+query into target. Returns
// false for a missing or expired entry.
func (c *ResultCache) Get(source string, query model.PricingQuery, target interface{}) (bool, error) {
	key := Key(source, query)

	c.mu.RLock()
	entry, ok := c.entries[key]
	nowFn := c.now
	c.mu.RUnlock()

	if !ok || !nowFn().Before(entry.ExpiresAt) {
		return false, nil
	}

	if err := json.Unmarshal(entry.Data, target); err != nil {
		return false, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return true, nil
}

// Set upserts the entry for source+query. A second Set on the same key
// overwrites in place rather than creating a second entry.
func (c *ResultCache) Set(source string, query model.PricingQuery, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	key := Key(source, query)

	c.mu.Lock()
	c.entries[key] = Entry{
		Data:      data,
		ExpiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()

	return c.save()
}

// PurgeExpired drops every expired entry and returns how many were
// removed.
func (c *ResultCache) PurgeExpired() int {
	c.mu.Lock()
	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		_ = c.save()
	}
	return removed
}

// Len reports the number of stored entries, expired or not.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all cache entries.
func (c *ResultCache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
	return c.save()
}

func (c *ResultCache) save() error {
	if c.path == "" {
		return nil
	}

	if dir := filepath.Dir(c.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	return os.WriteFile(c.path, data, 0644)
}

// Key builds the deterministic cache key for a source+query pair.
// Identity fields are lower-cased and joined in a fixed order, so
// logically identical queries hash identically regardless of
// incidental formatting.
func Key(source string, q model.PricingQuery) string {
	condition := "raw"
	if q.Graded() {
		condition = strings.ToLower(q.Grading.Company + " " + q.Grading.Grade)
	}
	return BuildKey(
		strings.ToLower(source),
		strings.ToLower(strings.TrimSpace(q.PlayerName)),
		strings.TrimSpace(q.Year),
		strings.ToLower(strings.TrimSpace(q.Brand)),
		strings.ToLower(strings.TrimSpace(q.CardNumber)),
		condition,
	)
}

// BuildKey joins key parts with "|".
func BuildKey(parts ...string) string {
	return strings.Join(parts, "|")
}

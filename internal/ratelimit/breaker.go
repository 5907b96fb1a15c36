package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Breaker is a per-source circuit breaker. After a rate-limit response
// the source blocks itself for a cool-down and refuses further
// requests without touching the network. Instance-scoped with an
// explicit Reset so tests can build isolated breakers instead of
// sharing process globals.
type Breaker struct {
	source       string
	blockedUntil time.Time
	reason       string
	now          func() time.Time
	mu           sync.Mutex
}

// NewBreaker creates an open (unblocked) breaker for one source.
func NewBreaker(source string) *Breaker {
	return &Breaker{source: source, now: time.Now}
}

// SetClock overrides the breaker's time source for tests.
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
}

// Block refuses all requests for the given cool-down.
func (b *Breaker) Block(cooldown time.Duration, reason string) {
	b.mu.Lock()
	b.blockedUntil = b.now().Add(cooldown)
	b.reason = reason
	b.mu.Unlock()
}

// Check returns a descriptive error while the breaker is blocked, nil
// once the cool-down has elapsed.
func (b *Breaker) Check() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.now().Before(b.blockedUntil) {
		remaining := b.blockedUntil.Sub(b.now()).Round(time.Second)
		return fmt.Errorf("%s blocked for %s: %s", b.source, remaining, b.reason)
	}
	return nil
}

// Reset clears any block immediately.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.blockedUntil = time.Time{}
	b.reason = ""
	b.mu.Unlock()
}

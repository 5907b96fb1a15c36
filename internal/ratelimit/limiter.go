package ratelimit

import (
	"sync"
	"time"
)

// Limiter implements a token bucket rate limiter. Each source adapter
// owns its own instance; there is no shared package-level state.
type Limiter struct {
	tokens     int
	maxTokens  int
	refillRate time.Duration
	mu         sync.Mutex
	lastRefill time.Time
}

// NewLimiter creates a token bucket holding at most maxTokens, gaining
// one token every refillRate.
func NewLimiter(maxTokens int, refillRate time.Duration) *Limiter {
	return &Limiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes a token if one is available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillTokens()

	if l.tokens > 0 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available.
func (l *Limiter) Wait() {
	for !l.Allow() {
		time.Sleep(l.refillRate / time.Duration(l.maxTokens))
	}
}

// WaitWithTimeout waits for a token, giving up once timeout elapses.
func (l *Limiter) WaitWithTimeout(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if l.Allow() {
			return true
		}

		sleepTime := l.refillRate / time.Duration(l.maxTokens)
		if sleepTime > time.Until(deadline) {
			sleepTime = time.Until(deadline)
		}
		if sleepTime > 0 {
			time.Sleep(sleepTime)
		}
	}
	return false
}

// TokensAvailable returns the current number of tokens in the bucket.
func (l *Limiter) TokensAvailable() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillTokens()
	return l.tokens
}

// refillTokens adds tokens based on elapsed time.
// Must be called with the mutex held.
func (l *Limiter) refillTokens() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill)

	tokensToAdd := int(elapsed / l.refillRate)
	if tokensToAdd > 0 {
		l.tokens = min(l.maxTokens, l.tokens+tokensToAdd)
		l.lastRefill = now
	}
}

package sources

import (
	"fmt"
	"time"
)

// Adapter failures are recovered at the adapter boundary and surfaced
// as SourceResult.Error strings. The typed errors below exist so
// adapter internals can match on cause (errors.As on RateLimitError
// drives the circuit breaker) before flattening to a string.

// ConfigurationError means a source is missing credentials or other
// required settings.
type ConfigurationError struct {
	Source  string
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s not configured: missing %s", e.Source, e.Missing)
}

// AuthError means a source rejected our credentials.
type AuthError struct {
	Source string
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Source, e.Reason)
}

// HTTPError is a non-success HTTP response, tagged with the status.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Status, e.URL)
}

// RateLimitError is an HTTP 429 or equivalent. The adapter's breaker
// blocks further requests for RetryAfter.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited, retry after %s", e.Source, e.RetryAfter)
}

// NoDataError means the source answered but had nothing relevant:
// zero results, or zero matches after grade filtering.
type NoDataError struct {
	Source string
	Reason string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s: no matching data: %s", e.Source, e.Reason)
}

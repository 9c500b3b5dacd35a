// Package ratelimit limits how fast individual API clients may submit
// requests. Each client gets a token bucket; idle buckets are dropped by a
// background sweep. This guards the service and is independent of the event
// throttle, which counts events rather than requests.
package ratelimit

import (
	"time"

	"throttler/internal/models"
)

// Limiter decides whether a client may proceed. Implementations must be safe
// for concurrent use.
type Limiter interface {
	// Allow consumes one token for client if available.
	Allow(client string) (bool, Info)

	// Close stops background work.
	Close()
}

// Info describes the client's bucket after an Allow call.
type Info struct {
	Limit      int           // requests per minute
	Remaining  int           // whole tokens left
	RetryAfter time.Duration // zero when allowed
}

// NewFromConfig builds a MemoryLimiter, or returns nil when rate limiting is disabled.
func NewFromConfig(cfg models.RateLimitConfig) *MemoryLimiter {
	if !cfg.Enabled {
		return nil
	}
	return NewMemoryLimiter(cfg.RequestsPerMinute, cfg.BurstSize, cfg.CleanupInterval)
}

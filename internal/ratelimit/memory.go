package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one golang.org/x/time/rate bucket per client in memory.
type MemoryLimiter struct {
	perMinute int
	rate      rate.Limit
	burst     int
	idle      time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter allows requestsPerMinute per client with the given burst.
// Buckets unused for two sweep intervals are forgotten.
func NewMemoryLimiter(requestsPerMinute, burst int, sweepInterval time.Duration) *MemoryLimiter {
	m := &MemoryLimiter{
		perMinute: requestsPerMinute,
		rate:      rate.Limit(float64(requestsPerMinute) / 60),
		burst:     burst,
		idle:      2 * sweepInterval,
		buckets:   make(map[string]*bucket),
		stop:      make(chan struct{}),
	}
	go m.sweepLoop(sweepInterval)
	return m
}

func (m *MemoryLimiter) Allow(client string) (bool, Info) {
	now := time.Now()

	m.mu.Lock()
	b, ok := m.buckets[client]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.rate, m.burst)}
		m.buckets[client] = b
	}
	b.lastSeen = now
	m.mu.Unlock()

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	info := Info{
		Limit:     m.perMinute,
		Remaining: int(math.Max(0, math.Floor(tokens))),
	}
	if !allowed {
		missing := 1 - tokens
		info.RetryAfter = time.Duration(missing / float64(m.rate) * float64(time.Second))
	}
	return allowed, info
}

// Clients returns the number of tracked buckets.
func (m *MemoryLimiter) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// Close stops the sweep goroutine. It is safe to call more than once.
func (m *MemoryLimiter) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *MemoryLimiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

func (m *MemoryLimiter) sweep(now time.Time) {
	cutoff := now.Add(-m.idle)

	m.mu.Lock()
	defer m.mu.Unlock()
	for client, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, client)
		}
	}
}

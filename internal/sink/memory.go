package sink

import (
	"context"
	"fmt"
	"sync"

	"throttler/internal/models"
)

// MemorySink keeps the most recent results in a fixed-size ring. Older
// results are overwritten once the ring is full. Data is lost on restart.
type MemorySink struct {
	mu    sync.RWMutex
	ring  []*models.ThrottleResult
	next  int // slot the next result is written to
	count int
}

// NewMemorySink creates a memory sink holding at most maxEvents results.
func NewMemorySink(maxEvents int) (*MemorySink, error) {
	if maxEvents <= 0 {
		return nil, fmt.Errorf("max events must be positive for memory sink, got %d", maxEvents)
	}
	return &MemorySink{
		ring: make([]*models.ThrottleResult, maxEvents),
	}, nil
}

// Write stores copies of results
func (m *MemorySink) Write(ctx context.Context, results []*models.ThrottleResult) error {
	if err := validateResults(results); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range results {
		m.ring[m.next] = cloneResult(r)
		m.next = (m.next + 1) % len(m.ring)
		if m.count < len(m.ring) {
			m.count++
		}
	}
	return nil
}

// Recent returns copies of up to limit results, newest first
func (m *MemorySink) Recent(ctx context.Context, limit int) ([]*models.ThrottleResult, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := limit
	if n > m.count {
		n = m.count
	}

	out := make([]*models.ThrottleResult, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.ring)) % len(m.ring)
		out = append(out, cloneResult(m.ring[idx]))
	}
	return out, nil
}

// Len returns how many results are held.
func (m *MemorySink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

func (m *MemorySink) Ping(ctx context.Context) error {
	return nil
}

func (m *MemorySink) Close() error {
	return nil
}

// cloneResult copies a result so callers mutating the event's tags or
// top-level fields cannot change the stored copy.
func cloneResult(r *models.ThrottleResult) *models.ThrottleResult {
	out := *r
	ev := *r.Event
	if r.Event.Tags != nil {
		ev.Tags = append([]string(nil), r.Event.Tags...)
	}
	ev.Fields = make(map[string]interface{}, len(r.Event.Fields))
	for k, v := range r.Event.Fields {
		ev.Fields[k] = v
	}
	out.Event = &ev
	return &out
}

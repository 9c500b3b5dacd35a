package throttle

import (
	"fmt"
	"time"
)

// Config is the immutable configuration of a Throttler.
type Config struct {
	Period      time.Duration // slot width, must be positive
	BeforeCount int           // tag while count < BeforeCount; 0 disables
	AfterCount  int           // tag once count > AfterCount; 0 disables
	MaxCounters int           // cache capacity; 0 means unbounded
}

// Decision is the detailed result of evaluating one event.
type Decision struct {
	Identity Identity
	Count    int64
	Verdict  Verdict
	Phase    Phase
}

// Stats is a point-in-time view of the counter cache.
type Stats struct {
	Counters  int
	Capacity  int
	Evictions uint64
}

// Throttler counts events per (key, slot) and decides whether each one should
// be tagged.
type Throttler struct {
	slots      SlotIndexer
	thresholds Thresholds
	cache      *CounterCache
}

// Option configures a Throttler.
type Option func(*Throttler)

// WithCache makes the throttler count into an existing cache instead of
// allocating one sized from Config.MaxCounters.
func WithCache(cache *CounterCache) Option {
	return func(t *Throttler) {
		t.cache = cache
	}
}

// New validates cfg and builds a Throttler. All configuration errors are
// reported here; evaluation itself never fails.
func New(cfg Config, opts ...Option) (*Throttler, error) {
	slots, err := NewSlotIndexer(cfg.Period)
	if err != nil {
		return nil, err
	}

	thresholds := Thresholds{Before: cfg.BeforeCount, After: cfg.AfterCount}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	t := &Throttler{
		slots:      slots,
		thresholds: thresholds,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.cache == nil {
		cache, err := NewCounterCache(cfg.MaxCounters)
		if err != nil {
			return nil, fmt.Errorf("failed to create counter cache: %w", err)
		}
		t.cache = cache
	}

	return t, nil
}

// Evaluate counts one event for key at ts and returns its verdict.
func (t *Throttler) Evaluate(key string, ts time.Time) Verdict {
	return t.Check(key, ts).Verdict
}

// Check counts one event for key at ts and returns the full decision.
func (t *Throttler) Check(key string, ts time.Time) Decision {
	id := NewIdentity(key, t.slots.Slot(ts))
	count := t.cache.Touch(id)
	phase := t.thresholds.Phase(count)

	verdict := Suppress
	if phase != PhaseSteady {
		verdict = Tag
	}

	return Decision{
		Identity: id,
		Count:    count,
		Verdict:  verdict,
		Phase:    phase,
	}
}

// Peek returns the current count for key in the slot containing ts without
// counting an event or changing eviction order.
func (t *Throttler) Peek(key string, ts time.Time) (int64, bool) {
	return t.cache.Count(NewIdentity(key, t.slots.Slot(ts)))
}

// Reset forgets every counter. Events seen afterwards start again at 1.
func (t *Throttler) Reset() {
	t.cache.Reset()
}

// Slot returns the slot containing ts.
func (t *Throttler) Slot(ts time.Time) int64 {
	return t.slots.Slot(ts)
}

// Thresholds returns the configured before/after counts.
func (t *Throttler) Thresholds() Thresholds {
	return t.thresholds
}

// Period returns the slot width.
func (t *Throttler) Period() time.Duration {
	return t.slots.Period()
}

// SlotStart returns the first instant of a slot.
func (t *Throttler) SlotStart(slot int64) time.Time {
	return t.slots.Start(slot)
}

// Stats reports the size and eviction total of the counter cache.
func (t *Throttler) Stats() Stats {
	return Stats{
		Counters:  t.cache.Len(),
		Capacity:  t.cache.Capacity(),
		Evictions: t.cache.Evictions(),
	}
}

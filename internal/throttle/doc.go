// Package throttle implements a per-key, time-windowed event-rate gate.
//
// Every event is reduced to an Identity: the caller-supplied grouping key plus
// the index of the fixed-width time slot its timestamp falls into. A bounded
// LRU cache keeps one running count per Identity, and a pair of thresholds turns
// that count into a Verdict:
//
//	Tag      if (before set and count < before) or (after set and count > after)
//	Suppress otherwise
//
// Counts below BeforeCount are the build-up phase of a burst, counts above
// AfterCount are the overflow phase, and everything in between is steady state.
//
// # Capacity
//
// The cache forgets the least recently touched Identity when MaxCounters would
// be exceeded. An evicted identity simply restarts at 1 on its next event. This
// is an accepted approximation under memory pressure and never an error. There
// is no time-based expiry: stale slots leave the cache only through eviction.
//
// # Concurrency
//
// A Throttler is safe for concurrent use. Touch runs as a single transaction
// under one mutex, so concurrent events for the same Identity receive distinct,
// strictly increasing counts and the Verdict for an event is always computed
// from the count its own Touch produced.
package throttle

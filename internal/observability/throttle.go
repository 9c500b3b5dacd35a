package observability

import (
	"context"

	"throttler/internal/throttle"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// StatsFunc reports the current counter cache state.
type StatsFunc func() throttle.Stats

// RegisterThrottleMetrics exposes the counter cache as observable instruments
// read on every collection. Unregister the returned registration on shutdown.
func RegisterThrottleMetrics(stats StatsFunc) (metric.Registration, error) {
	meter := otel.Meter(scopeThrottle)

	counters, err := meter.Int64ObservableGauge(
		"throttle.counters",
		metric.WithDescription("Live per-key counters in the cache"),
	)
	if err != nil {
		return nil, err
	}

	capacity, err := meter.Int64ObservableGauge(
		"throttle.capacity",
		metric.WithDescription("Maximum number of counters, 0 when unbounded"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64ObservableCounter(
		"throttle.evictions",
		metric.WithDescription("Counters evicted to make room for new keys"),
	)
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(counters, int64(s.Counters))
		o.ObserveInt64(capacity, int64(s.Capacity))
		o.ObserveInt64(evictions, int64(s.Evictions))
		return nil
	}, counters, capacity, evictions)
}

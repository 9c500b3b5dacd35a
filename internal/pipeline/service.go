// Package pipeline drives events through the throttle filter and hands the
// results to a sink.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"throttler/internal/filter"
	"throttler/internal/models"
	"throttler/internal/sink"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Service processes events
type Service struct {
	filter       *filter.Filter
	sink         sink.Sink
	workers      int
	maxBatchSize int
}

// NewService creates a pipeline over f that writes results to s.
func NewService(f *filter.Filter, s sink.Sink, cfg models.PipelineConfig) *Service {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		filter:       f,
		sink:         s,
		workers:      workers,
		maxBatchSize: cfg.MaxBatchSize,
	}
}

// Process evaluates a single event. The throttle decision is final once made:
// a sink failure is reported but the event has already been counted.
func (s *Service) Process(ctx context.Context, ev *models.Event) (*models.ProcessResponse, error) {
	if ev == nil {
		return nil, NewInvalidRequestError("event cannot be empty", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, NewUnavailableError("request cancelled", err)
	}

	evictions := s.evictions()
	result := s.apply(ev)
	s.logEvictions(evictions)

	if err := s.sink.Write(context.WithoutCancel(ctx), []*models.ThrottleResult{result}); err != nil {
		slog.Error("Failed to write result", "key", result.Key, "error", err)
		return nil, NewInternalError("failed to write result", err)
	}

	return &models.ProcessResponse{Result: result}, nil
}

// ProcessBatch evaluates events on up to the configured number of workers.
// With a single worker events are counted in input order.
func (s *Service) ProcessBatch(ctx context.Context, events []*models.Event) (*models.BatchProcessResponse, error) {
	req := models.BatchProcessRequest{Events: events}
	if err := req.Validate(); err != nil {
		return nil, NewInvalidRequestError("invalid batch", err)
	}
	if s.maxBatchSize > 0 && len(events) > s.maxBatchSize {
		return nil, NewInvalidRequestError(
			fmt.Sprintf("batch of %d events exceeds the limit of %d", len(events), s.maxBatchSize), nil)
	}

	if err := ctx.Err(); err != nil {
		return nil, NewUnavailableError("request cancelled", err)
	}

	// Once the first event is counted the batch runs to completion and is
	// written even if ctx is cancelled meanwhile, so every count has a result.
	evictions := s.evictions()
	results := make([]*models.ThrottleResult, len(events))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, ev := range events {
		g.Go(func() error {
			results[i] = s.apply(ev)
			return nil
		})
	}
	_ = g.Wait()
	s.logEvictions(evictions)

	if err := s.sink.Write(context.WithoutCancel(ctx), results); err != nil {
		slog.Error("Failed to write batch results", "count", len(results), "error", err)
		return nil, NewInternalError("failed to write results", err)
	}

	resp := models.NewBatchProcessResponse(results)
	slog.Debug("Batch processed", "total", resp.Total, "tagged", resp.Tagged)
	return resp, nil
}

// Recent returns the latest results held by the sink.
func (s *Service) Recent(ctx context.Context, limit int) (*models.RecentEventsResponse, error) {
	if limit <= 0 {
		return nil, NewInvalidRequestError("limit must be positive", nil)
	}

	results, err := s.sink.Recent(ctx, limit)
	if err != nil {
		return nil, NewInternalError("failed to read recent results", err)
	}

	return &models.RecentEventsResponse{
		Results: results,
		Count:   len(results),
	}, nil
}

// Stats reports the counter cache state and the configured thresholds.
func (s *Service) Stats(ctx context.Context) (*models.ThrottleStatsResponse, error) {
	th := s.filter.Throttler()
	stats := th.Stats()
	thresholds := th.Thresholds()

	return &models.ThrottleStatsResponse{
		Key:         s.filter.KeyTemplate(),
		Period:      th.Period().String(),
		BeforeCount: thresholds.Before,
		AfterCount:  thresholds.After,
		Counters:    stats.Counters,
		MaxCounters: stats.Capacity,
		Evictions:   stats.Evictions,
	}, nil
}

// Counter peeks at the count of key in the window containing ts.
func (s *Service) Counter(ctx context.Context, key string, ts time.Time) (*models.CounterResponse, error) {
	if key == "" {
		return nil, NewInvalidRequestError("key cannot be empty", nil)
	}

	th := s.filter.Throttler()
	slot := th.Slot(ts)
	count, found := th.Peek(key, ts)

	return &models.CounterResponse{
		Key:       key,
		Timestamp: ts,
		Slot:      slot,
		SlotStart: th.SlotStart(slot),
		Count:     count,
		Found:     found,
	}, nil
}

// ResetCounters forgets every counter, e.g. after a threshold incident has
// been handled.
func (s *Service) ResetCounters(ctx context.Context) (*models.ThrottleStatsResponse, error) {
	before := s.filter.Throttler().Stats().Counters
	s.filter.Throttler().Reset()
	slog.Info("Throttle counters reset", "dropped", before)
	return s.Stats(ctx)
}

func (s *Service) apply(ev *models.Event) *models.ThrottleResult {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	return s.filter.Apply(ev)
}

func (s *Service) evictions() uint64 {
	return s.filter.Throttler().Stats().Evictions
}

func (s *Service) logEvictions(before uint64) {
	if after := s.evictions(); after > before {
		slog.Debug("Counter cache evicted entries", "evicted", after-before, "total", after)
	}
}

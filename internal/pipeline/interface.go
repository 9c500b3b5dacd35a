package pipeline

import (
	"context"
	"time"

	"throttler/internal/models"
)

// ServiceInterface defines the operations the HTTP layer needs from the pipeline
type ServiceInterface interface {
	// Process runs one event through the throttle and writes the result to the sink
	Process(ctx context.Context, ev *models.Event) (*models.ProcessResponse, error)

	// ProcessBatch runs several events and returns their results in input order
	ProcessBatch(ctx context.Context, events []*models.Event) (*models.BatchProcessResponse, error)

	// Recent returns the latest results held by the sink, newest first
	Recent(ctx context.Context, limit int) (*models.RecentEventsResponse, error)

	// Stats describes the live counter cache
	Stats(ctx context.Context) (*models.ThrottleStatsResponse, error)

	// Counter reports the count of key in the window containing ts without counting an event
	Counter(ctx context.Context, key string, ts time.Time) (*models.CounterResponse, error)

	// ResetCounters drops every live counter and returns the resulting stats
	ResetCounters(ctx context.Context) (*models.ThrottleStatsResponse, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)

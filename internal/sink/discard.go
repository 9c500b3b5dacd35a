package sink

import (
	"context"

	"throttler/internal/models"
)

// DiscardSink drops every result. It backs the "none" sink type.
type DiscardSink struct{}

func NewDiscardSink() *DiscardSink {
	return &DiscardSink{}
}

func (DiscardSink) Write(ctx context.Context, results []*models.ThrottleResult) error {
	return validateResults(results)
}

func (DiscardSink) Recent(ctx context.Context, limit int) ([]*models.ThrottleResult, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return []*models.ThrottleResult{}, nil
}

func (DiscardSink) Ping(ctx context.Context) error { return nil }

func (DiscardSink) Close() error { return nil }

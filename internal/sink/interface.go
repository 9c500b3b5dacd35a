// Package sink stores processed events together with the throttle decision
// made for each, so recent output can be inspected. Sinks never hold counter
// state: that lives in the throttle package and is lost on restart.
package sink

import (
	"context"

	"throttler/internal/models"
)

// Sink is the output side of the pipeline.
type Sink interface {
	// Write appends processed events
	Write(ctx context.Context, results []*models.ThrottleResult) error

	// Recent returns up to limit results, newest first
	Recent(ctx context.Context, limit int) ([]*models.ThrottleResult, error)

	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error

	// Close closes the sink connection and cleans up resources
	Close() error
}

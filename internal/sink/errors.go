package sink

import (
	"errors"

	"throttler/internal/models"
)

var (
	// ErrNilResult is returned when a nil result, or a result without an event, is written.
	ErrNilResult = errors.New("result and its event cannot be nil")

	// ErrInvalidLimit is returned when Recent is called with a non-positive limit.
	ErrInvalidLimit = errors.New("limit must be positive")
)

func validateResults(results []*models.ThrottleResult) error {
	for _, r := range results {
		if r == nil || r.Event == nil {
			return ErrNilResult
		}
	}
	return nil
}

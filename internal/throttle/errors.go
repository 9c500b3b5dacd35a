package throttle

import "errors"

var (
	// ErrInvalidPeriod is returned when the slot period is zero or negative.
	ErrInvalidPeriod = errors.New("period must be positive")

	// ErrNegativeCapacity is returned when the counter cache capacity is negative.
	ErrNegativeCapacity = errors.New("max counters cannot be negative")

	// ErrNegativeThreshold is returned when before_count or after_count is negative.
	ErrNegativeThreshold = errors.New("thresholds cannot be negative")

	// ErrInvertedThresholds is returned when before_count is greater than after_count.
	ErrInvertedThresholds = errors.New("before count cannot exceed after count")
)

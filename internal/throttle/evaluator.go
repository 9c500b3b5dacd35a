package throttle

import "fmt"

// Verdict is the outcome for a single event.
type Verdict int

const (
	// Suppress leaves the event untouched.
	Suppress Verdict = iota
	// Tag asks the caller to apply its configured tags.
	Tag
)

// String returns "tag" or "suppress", the form reported in results.
func (v Verdict) String() string {
	switch v {
	case Tag:
		return "tag"
	default:
		return "suppress"
	}
}

// Phase classifies a count relative to the thresholds.
type Phase int

const (
	// PhaseSteady is a count within [before_count, after_count].
	PhaseSteady Phase = iota
	// PhaseBuildUp is a count below before_count.
	PhaseBuildUp
	// PhaseOverflow is a count above after_count.
	PhaseOverflow
)

// String returns "build_up", "steady" or "overflow".
func (p Phase) String() string {
	switch p {
	case PhaseBuildUp:
		return "build_up"
	case PhaseOverflow:
		return "overflow"
	default:
		return "steady"
	}
}

// Thresholds holds the optional before/after counts. Zero means the side is
// not configured.
type Thresholds struct {
	Before int
	After  int
}

// Validate rejects negative values and inverted bounds.
func (t Thresholds) Validate() error {
	if t.Before < 0 || t.After < 0 {
		return fmt.Errorf("%w: before=%d after=%d", ErrNegativeThreshold, t.Before, t.After)
	}
	if t.Before > 0 && t.After > 0 && t.Before > t.After {
		return fmt.Errorf("%w: before=%d after=%d", ErrInvertedThresholds, t.Before, t.After)
	}
	return nil
}

// Decide maps a count to a verdict. Comparisons are strict on both sides.
func (t Thresholds) Decide(count int64) Verdict {
	if t.Phase(count) == PhaseSteady {
		return Suppress
	}
	return Tag
}

// Phase reports which region count falls in. Build-up takes precedence when
// both conditions hold.
func (t Thresholds) Phase(count int64) Phase {
	if t.Before > 0 && count < int64(t.Before) {
		return PhaseBuildUp
	}
	if t.After > 0 && count > int64(t.After) {
		return PhaseOverflow
	}
	return PhaseSteady
}

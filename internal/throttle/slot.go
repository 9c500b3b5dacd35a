package throttle

import (
	"fmt"
	"math/bits"
	"time"
)

const nanosPerSecond = int64(time.Second)

// SlotIndexer maps timestamps onto period-aligned windows.
type SlotIndexer struct {
	period time.Duration
}

// NewSlotIndexer returns an indexer for the given period.
func NewSlotIndexer(period time.Duration) (SlotIndexer, error) {
	if period <= 0 {
		return SlotIndexer{}, fmt.Errorf("%w: got %s", ErrInvalidPeriod, period)
	}
	return SlotIndexer{period: period}, nil
}

// Period returns the configured window width.
func (s SlotIndexer) Period() time.Duration {
	return s.period
}

// Slot returns floor(ts / period) measured from the Unix epoch. Two timestamps
// share a slot iff they fall in the same [slot*period, (slot+1)*period) window.
//
// The division is split over seconds and nanoseconds so timestamps outside the
// range of UnixNano (years 1678 to 2262) are bucketed exactly.
func (s SlotIndexer) Slot(ts time.Time) int64 {
	p := int64(s.period)

	// ts = sec*1e9 + nsec and sec = q*p + r with 0 <= r < p, so
	// ts/p = q*1e9 + (r*1e9 + nsec)/p where the second term is below 1e9.
	q := floorDiv(ts.Unix(), p)
	r := ts.Unix() - q*p

	hi, lo := bits.Mul64(uint64(r), uint64(nanosPerSecond))
	lo, carry := bits.Add64(lo, uint64(ts.Nanosecond()), 0)
	hi += carry
	frac, _ := bits.Div64(hi, lo, uint64(p))

	return q*nanosPerSecond + int64(frac)
}

// Start returns the first instant of the given slot.
func (s SlotIndexer) Start(slot int64) time.Time {
	p := int64(s.period)

	// slot = a*1e9 + b with 0 <= b < 1e9, so
	// slot*p ns = a*p seconds + b*p ns.
	a := floorDiv(slot, nanosPerSecond)
	b := slot - a*nanosPerSecond

	hi, lo := bits.Mul64(uint64(b), uint64(p))
	sec, nsec := bits.Div64(hi, lo, uint64(nanosPerSecond))

	return time.Unix(a*p+int64(sec), int64(nsec)).UTC()
}

// floorDiv divides rounding toward negative infinity so timestamps before the
// epoch land in the window that contains them.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

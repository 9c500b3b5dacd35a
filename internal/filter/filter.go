// Package filter adapts the throttle engine to pipeline events. It resolves
// the grouping key from a field template, supplies a timestamp when the event
// has none, and applies the configured tags and fields to events the throttle
// flags.
package filter

import (
	"fmt"
	"log/slog"
	"time"

	"throttler/internal/models"
	"throttler/internal/throttle"
)

// Filter applies a throttle to events.
type Filter struct {
	throttler   *throttle.Throttler
	keyTemplate string
	addTags     []string
	addFields   map[string]string
	now         func() time.Time
}

// Option configures a Filter.
type Option func(*Filter)

// WithClock overrides the source of processing time used for events without
// a timestamp.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) {
		f.now = now
	}
}

// New wraps an existing throttler with the key template and decorations from cfg.
func New(th *throttle.Throttler, cfg models.ThrottleConfig, opts ...Option) *Filter {
	f := &Filter{
		throttler:   th,
		keyTemplate: cfg.Key,
		addTags:     cfg.AddTags,
		addFields:   cfg.AddFields,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFromConfig builds the throttler described by cfg and wraps it.
func NewFromConfig(cfg models.ThrottleConfig, opts ...Option) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid throttle config: %w", err)
	}

	th, err := throttle.New(throttle.Config{
		Period:      cfg.Period,
		BeforeCount: cfg.BeforeCount,
		AfterCount:  cfg.AfterCount,
		MaxCounters: cfg.MaxCounters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create throttler: %w", err)
	}

	return New(th, cfg, opts...), nil
}

// Throttler returns the underlying engine.
func (f *Filter) Throttler() *throttle.Throttler {
	return f.throttler
}

// KeyTemplate returns the configured grouping key template.
func (f *Filter) KeyTemplate() string {
	return f.keyTemplate
}

// Apply counts ev against its bucket and decorates it when tagged. The event
// is modified in place.
func (f *Filter) Apply(ev *models.Event) *models.ThrottleResult {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = f.now()
	}

	key := Interpolate(f.keyTemplate, ev)
	decision := f.throttler.Check(key, ev.Timestamp)

	if decision.Verdict == throttle.Tag {
		f.decorate(ev)
		slog.Debug("Event throttled",
			"key", key,
			"slot", decision.Identity.Slot,
			"count", decision.Count,
			"phase", decision.Phase.String(),
		)
	}

	return &models.ThrottleResult{
		Event:       ev,
		Key:         key,
		Slot:        decision.Identity.Slot,
		SlotStart:   f.throttler.SlotStart(decision.Identity.Slot),
		Count:       decision.Count,
		Verdict:     decision.Verdict.String(),
		Phase:       decision.Phase.String(),
		ProcessedAt: f.now(),
	}
}

// decorate applies add_field, then add_tag.
func (f *Filter) decorate(ev *models.Event) {
	for name, value := range f.addFields {
		ev.Set(Interpolate(name, ev), Interpolate(value, ev))
	}
	for _, tag := range f.addTags {
		ev.AddTag(Interpolate(tag, ev))
	}
}

package observability

import (
	"context"
	"time"

	"throttler/internal/models"
	"throttler/internal/pipeline"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedService wraps the pipeline with spans, a latency histogram and
// a per-verdict event counter.
type InstrumentedService struct {
	inner    pipeline.ServiceInterface
	tracer   trace.Tracer
	duration metric.Float64Histogram
	events   metric.Int64Counter
}

var _ pipeline.ServiceInterface = (*InstrumentedService)(nil)

func NewInstrumentedService(inner pipeline.ServiceInterface) (*InstrumentedService, error) {
	meter := otel.Meter(scopePipeline)

	duration, err := meter.Float64Histogram(
		"pipeline.operation.duration",
		metric.WithDescription("Duration of pipeline operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	events, err := meter.Int64Counter(
		"throttle.events",
		metric.WithDescription("Events evaluated by the throttle, by verdict and phase"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedService{
		inner:    inner,
		tracer:   otel.Tracer(scopePipeline),
		duration: duration,
		events:   events,
	}, nil
}

func (s *InstrumentedService) Process(ctx context.Context, ev *models.Event) (*models.ProcessResponse, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.Process")
	start := time.Now()

	resp, err := s.inner.Process(ctx, ev)
	if resp != nil && resp.Result != nil {
		span.SetAttributes(
			attribute.String("throttle.key", resp.Result.Key),
			attribute.Int64("throttle.count", resp.Result.Count),
			attribute.String("throttle.verdict", resp.Result.Verdict),
		)
		s.countResults(ctx, resp.Result)
	}

	s.finish(ctx, span, "Process", start, err)
	return resp, err
}

func (s *InstrumentedService) ProcessBatch(ctx context.Context, events []*models.Event) (*models.BatchProcessResponse, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.ProcessBatch",
		trace.WithAttributes(attribute.Int("pipeline.batch_size", len(events))),
	)
	start := time.Now()

	resp, err := s.inner.ProcessBatch(ctx, events)
	if resp != nil {
		span.SetAttributes(attribute.Int("pipeline.tagged", resp.Tagged))
		s.countResults(ctx, resp.Results...)
	}

	s.finish(ctx, span, "ProcessBatch", start, err)
	return resp, err
}

func (s *InstrumentedService) Recent(ctx context.Context, limit int) (*models.RecentEventsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.Recent")
	start := time.Now()
	resp, err := s.inner.Recent(ctx, limit)
	s.finish(ctx, span, "Recent", start, err)
	return resp, err
}

func (s *InstrumentedService) Stats(ctx context.Context) (*models.ThrottleStatsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.Stats")
	start := time.Now()
	resp, err := s.inner.Stats(ctx)
	s.finish(ctx, span, "Stats", start, err)
	return resp, err
}

func (s *InstrumentedService) Counter(ctx context.Context, key string, ts time.Time) (*models.CounterResponse, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.Counter",
		trace.WithAttributes(attribute.String("throttle.key", key)))
	start := time.Now()
	resp, err := s.inner.Counter(ctx, key, ts)
	s.finish(ctx, span, "Counter", start, err)
	return resp, err
}

func (s *InstrumentedService) ResetCounters(ctx context.Context) (*models.ThrottleStatsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.ResetCounters")
	start := time.Now()
	resp, err := s.inner.ResetCounters(ctx)
	s.finish(ctx, span, "ResetCounters", start, err)
	return resp, err
}

func (s *InstrumentedService) countResults(ctx context.Context, results ...*models.ThrottleResult) {
	for _, r := range results {
		if r == nil {
			continue
		}
		s.events.Add(ctx, 1, metric.WithAttributes(
			attribute.String("verdict", r.Verdict),
			attribute.String("phase", r.Phase),
		))
	}
}

func (s *InstrumentedService) finish(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	s.duration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("operation", operation)))
	endSpan(span, err)
}

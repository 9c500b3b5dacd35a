package observability

import (
	"context"
	"time"

	"throttler/internal/models"
	"throttler/internal/sink"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedSink wraps a sink.Sink with tracing and metrics.
type InstrumentedSink struct {
	inner    sink.Sink
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
	written  metric.Int64Counter
}

// NewInstrumentedSink creates a sink wrapper that records a span, a latency
// sample and, on failure, an error count for every sink call.
func NewInstrumentedSink(inner sink.Sink) (*InstrumentedSink, error) {
	meter := otel.Meter(scopeSink)

	duration, err := meter.Float64Histogram(
		"sink.operation.duration",
		metric.WithDescription("Duration of sink operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"sink.operation.errors",
		metric.WithDescription("Number of sink operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	written, err := meter.Int64Counter(
		"sink.results.written",
		metric.WithDescription("Number of results written to the sink"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedSink{
		inner:    inner,
		tracer:   otel.Tracer(scopeSink),
		duration: duration,
		errors:   errCounter,
		written:  written,
	}, nil
}

func (s *InstrumentedSink) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "sink."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("sink.operation", operation),
		}, attrs...)...),
	)
}

func (s *InstrumentedSink) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	s.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	endSpan(span, err)
	if err != nil {
		s.errors.Add(ctx, 1, attrs)
	}
}

func (s *InstrumentedSink) Write(ctx context.Context, results []*models.ThrottleResult) error {
	ctx, span := s.startSpan(ctx, "Write", attribute.Int("sink.results", len(results)))
	start := time.Now()
	err := s.inner.Write(ctx, results)
	s.record(ctx, span, "Write", start, err)
	if err == nil {
		s.written.Add(ctx, int64(len(results)))
	}
	return err
}

func (s *InstrumentedSink) Recent(ctx context.Context, limit int) ([]*models.ThrottleResult, error) {
	ctx, span := s.startSpan(ctx, "Recent", attribute.Int("sink.limit", limit))
	start := time.Now()
	results, err := s.inner.Recent(ctx, limit)
	s.record(ctx, span, "Recent", start, err)
	return results, err
}

func (s *InstrumentedSink) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedSink) Close() error {
	return s.inner.Close()
}

// endSpan sets the span status from err and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

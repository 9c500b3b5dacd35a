package observability

import (
	"context"
	"testing"
	"time"

	"throttler/internal/filter"
	"throttler/internal/models"
	"throttler/internal/pipeline"
	"throttler/internal/sink"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func newTestPipeline(t *testing.T) *pipeline.Service {
	t.Helper()
	f, err := filter.NewFromConfig(models.ThrottleConfig{
		Key:         "%{host}",
		Period:      time.Minute,
		BeforeCount: 2,
		AfterCount:  3,
		AddTags:     []string{"throttled"},
	})
	require.NoError(t, err)
	s, err := sink.NewMemorySink(100)
	require.NoError(t, err)
	return pipeline.NewService(f, s, models.PipelineConfig{Workers: 1, MaxBatchSize: 100})
}

func hostEvent(ts time.Time) *models.Event {
	return models.NewEvent(ts, map[string]interface{}{"host": "server1"})
}

func TestInstrumentedService_CountsVerdicts(t *testing.T) {
	reader, recorder := installTestProviders(t)

	svc, err := NewInstrumentedService(newTestPipeline(t))
	require.NoError(t, err)

	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err = svc.Process(ctx, hostEvent(ts))
	require.NoError(t, err)

	batch, err := svc.ProcessBatch(ctx, []*models.Event{hostEvent(ts), hostEvent(ts), hostEvent(ts)})
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Tagged)

	_, err = svc.Recent(ctx, 10)
	require.NoError(t, err)
	_, err = svc.Stats(ctx)
	require.NoError(t, err)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(4), sumValue(t, rm, "throttle.events"))
	assert.Equal(t, int64(2), sumValue(t, rm, "throttle.events", attribute.String("verdict", models.VerdictTag)))
	assert.Equal(t, int64(2), sumValue(t, rm, "throttle.events", attribute.String("verdict", models.VerdictSuppress)))
	assert.Equal(t, int64(1), sumValue(t, rm, "throttle.events",
		attribute.String("verdict", models.VerdictTag), attribute.String("phase", "build_up")))
	assert.Equal(t, int64(1), sumValue(t, rm, "throttle.events",
		attribute.String("verdict", models.VerdictTag), attribute.String("phase", "overflow")))

	names := make([]string, 0, 4)
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"pipeline.Process", "pipeline.ProcessBatch", "pipeline.Recent", "pipeline.Stats"}, names)
}

func TestInstrumentedService_RecordsFailures(t *testing.T) {
	_, recorder := installTestProviders(t)

	svc, err := NewInstrumentedService(newTestPipeline(t))
	require.NoError(t, err)

	_, err = svc.ProcessBatch(context.Background(), nil)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestInstrumentedService_CounterAndReset(t *testing.T) {
	_, recorder := installTestProviders(t)

	svc, err := NewInstrumentedService(newTestPipeline(t))
	require.NoError(t, err)

	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err = svc.Process(ctx, hostEvent(ts))
	require.NoError(t, err)

	c, err := svc.Counter(ctx, "server1", ts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Count)

	stats, err := svc.ResetCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Counters)

	c, err = svc.Counter(ctx, "server1", ts)
	require.NoError(t, err)
	assert.False(t, c.Found)

	names := make([]string, 0, 4)
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"pipeline.Process", "pipeline.Counter", "pipeline.ResetCounters", "pipeline.Counter"}, names)
}

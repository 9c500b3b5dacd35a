package sink

import (
	"context"
	"fmt"
	"testing"
	"time"

	"throttler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSlotStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestResult(i int) *models.ThrottleResult {
	ev := models.NewEvent(testSlotStart.Add(time.Duration(i)*time.Second), map[string]interface{}{
		"host":    "web-1",
		"message": fmt.Sprintf("message %d", i),
	})
	ev.ID = fmt.Sprintf("event-%d", i)

	verdict, phase := models.VerdictSuppress, "steady"
	if i%2 == 0 {
		ev.AddTag("throttled")
		verdict, phase = models.VerdictTag, "overflow"
	}

	return &models.ThrottleResult{
		Event:       ev,
		Key:         "web-1",
		Slot:        28485360,
		SlotStart:   testSlotStart,
		Count:       int64(i),
		Verdict:     verdict,
		Phase:       phase,
		ProcessedAt: testSlotStart.Add(time.Minute),
	}
}

func newTestResults(n int) []*models.ThrottleResult {
	results := make([]*models.ThrottleResult, 0, n)
	for i := 1; i <= n; i++ {
		results = append(results, newTestResult(i))
	}
	return results
}

// exerciseSink runs the behaviour every backend must share.
func exerciseSink(t *testing.T, s Sink) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	empty, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.Write(ctx, newTestResults(5)))
	require.NoError(t, s.Write(ctx, nil))

	got, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "event-5", got[0].Event.ID)
	assert.Equal(t, "event-4", got[1].Event.ID)
	assert.Equal(t, "event-3", got[2].Event.ID)

	tagged := got[1]
	assert.Equal(t, "web-1", tagged.Key)
	assert.Equal(t, int64(28485360), tagged.Slot)
	assert.Equal(t, int64(4), tagged.Count)
	assert.Equal(t, models.VerdictTag, tagged.Verdict)
	assert.Equal(t, "overflow", tagged.Phase)
	assert.True(t, tagged.SlotStart.Equal(testSlotStart))
	assert.True(t, tagged.ProcessedAt.Equal(testSlotStart.Add(time.Minute)))
	assert.True(t, tagged.Event.Timestamp.Equal(testSlotStart.Add(4*time.Second)))
	assert.True(t, tagged.Event.HasTag("throttled"))
	msg, ok := tagged.Event.GetString("message")
	assert.True(t, ok)
	assert.Equal(t, "message 4", msg)
	assert.False(t, got[0].Event.HasTag("throttled"))

	all, err := s.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = s.Recent(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	err = s.Write(ctx, []*models.ThrottleResult{nil})
	assert.ErrorIs(t, err, ErrNilResult)

	err = s.Write(ctx, []*models.ThrottleResult{{Key: "no-event"}})
	assert.ErrorIs(t, err, ErrNilResult)
}

package sink

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalEventRoundTrip(t *testing.T) {
	original := newTestResult(2).Event

	data, err := marshalEvent(original)
	require.NoError(t, err)

	got, err := unmarshalEvent(data)
	require.NoError(t, err)

	assert.Equal(t, original.ID, got.ID)
	assert.True(t, original.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, original.Tags, got.Tags)
	assert.Equal(t, "web-1", got.Fields["host"])
	assert.Equal(t, "message 2", got.Fields["message"])
}

func TestUnmarshalEventEmpty(t *testing.T) {
	ev, err := unmarshalEvent(nil)
	require.NoError(t, err)
	assert.NotNil(t, ev.Fields)
	assert.True(t, ev.Timestamp.IsZero())
}

func TestUnmarshalEventNumbersStayExact(t *testing.T) {
	ev, err := unmarshalEvent([]byte(`{"bytes":12345678901234567}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234567"), ev.Fields["bytes"])
}

func TestUnmarshalEventInvalid(t *testing.T) {
	_, err := unmarshalEvent([]byte(`{"@timestamp":42}`))
	assert.Error(t, err)
}

func TestFormatParseTime(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.FixedZone("CEST", 2*60*60))

	s := formatTime(ts)
	assert.Equal(t, "2024-05-01T08:00:00.123456789Z", s)

	back, err := parseTime(s)
	require.NoError(t, err)
	assert.True(t, ts.Equal(back))

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}

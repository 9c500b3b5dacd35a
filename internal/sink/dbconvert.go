package sink

import (
	"encoding/json"
	"fmt"
	"time"

	"throttler/internal/models"
)

// marshalEvent converts an event to the flat JSON stored in the event column.
func marshalEvent(ev *models.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// unmarshalEvent converts a stored event column back to an event.
func unmarshalEvent(data []byte) (*models.Event, error) {
	ev := &models.Event{}
	if len(data) == 0 {
		ev.Fields = map[string]interface{}{}
		return ev, nil
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return ev, nil
}

// formatTime renders a timestamp for TEXT columns.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a timestamp stored by formatTime.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t, nil
}

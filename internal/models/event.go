// Package models - Event and processing result types.
// Events use the flat JSON shape of log pipelines: "@timestamp" and "tags" are
// reserved keys, every other key is an event field.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Reserved event keys.
const (
	FieldTimestamp = "@timestamp"
	FieldTags      = "tags"
	FieldID        = "@id"
)

// Verdict strings reported for processed events.
const (
	VerdictTag      = "tag"
	VerdictSuppress = "suppress"
)

// Event is a single pipeline event.
type Event struct {
	ID        string
	Timestamp time.Time // zero when the producer did not supply one
	Fields    map[string]interface{}
	Tags      []string
}

// NewEvent creates an event with the given timestamp and fields.
func NewEvent(ts time.Time, fields map[string]interface{}) *Event {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	return &Event{Timestamp: ts, Fields: fields}
}

// Get returns the raw value of a field. "@timestamp" is served from Timestamp.
func (e *Event) Get(field string) (interface{}, bool) {
	if field == FieldTimestamp {
		if e.Timestamp.IsZero() {
			return nil, false
		}
		return e.Timestamp.UTC().Format(time.RFC3339Nano), true
	}
	v, ok := e.Fields[field]
	return v, ok
}

// GetString returns a field formatted as text. Arrays and objects are rendered
// as compact JSON.
func (e *Event) GetString(field string) (string, bool) {
	v, ok := e.Get(field)
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case []interface{}, map[string]interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val), true
		}
		return string(b), true
	default:
		return fmt.Sprint(val), true
	}
}

// Set stores a field value.
func (e *Event) Set(field string, value interface{}) {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[field] = value
}

// HasTag reports whether tag is present.
func (e *Event) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends tag unless it is already present.
func (e *Event) AddTag(tag string) {
	if !e.HasTag(tag) {
		e.Tags = append(e.Tags, tag)
	}
}

// MarshalJSON flattens the event into a single object.
func (e *Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Fields)+3)
	for k, v := range e.Fields {
		out[k] = v
	}
	if e.ID != "" {
		out[FieldID] = e.ID
	}
	if !e.Timestamp.IsZero() {
		out[FieldTimestamp] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if len(e.Tags) > 0 {
		out[FieldTags] = e.Tags
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a flat event object. Numbers are kept as json.Number so
// they round-trip and interpolate without float formatting.
func (e *Event) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("event must be a JSON object")
	}

	*e = Event{Fields: make(map[string]interface{}, len(raw))}

	for k, v := range raw {
		switch k {
		case FieldTimestamp:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%s must be an RFC3339 string", FieldTimestamp)
			}
			ts, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", FieldTimestamp, err)
			}
			e.Timestamp = ts
		case FieldTags:
			tags, err := parseTags(v)
			if err != nil {
				return err
			}
			e.Tags = tags
		case FieldID:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%s must be a string", FieldID)
			}
			e.ID = s
		default:
			e.Fields[k] = v
		}
	}
	return nil
}

func parseTags(v interface{}) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{val}, nil
	case []interface{}:
		tags := make([]string, 0, len(val))
		for _, t := range val {
			s, ok := t.(string)
			if !ok {
				return nil, fmt.Errorf("%s must contain only strings", FieldTags)
			}
			tags = append(tags, s)
		}
		return tags, nil
	default:
		return nil, fmt.Errorf("%s must be a string or an array of strings", FieldTags)
	}
}

// ThrottleResult records what the throttle decided for one event.
type ThrottleResult struct {
	Event       *Event    `json:"event"`
	Key         string    `json:"key"`
	Slot        int64     `json:"slot"`
	SlotStart   time.Time `json:"slot_start"`
	Count       int64     `json:"count"`
	Verdict     string    `json:"verdict"`
	Phase       string    `json:"phase"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Tagged reports whether the event received the throttle tags.
func (r *ThrottleResult) Tagged() bool {
	return r.Verdict == VerdictTag
}

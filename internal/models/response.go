// Package models - API response types and error handling.
// This file defines all outgoing API response structures with consistent formatting.
//
// Response Design Principles:
// - Consistent JSON structure across all endpoints
// - Machine-readable error codes alongside human-readable messages
// - RFC3339 timestamps
package models

import (
	"time"
)

// ProcessResponse is returned for a single processed event.
type ProcessResponse struct {
	Result *ThrottleResult `json:"result"`
}

type BatchProcessResponse struct {
	Results []*ThrottleResult `json:"results"`
	Total   int               `json:"total"`
	Tagged  int               `json:"tagged"`
}

type RecentEventsResponse struct {
	Results []*ThrottleResult `json:"results"`
	Count   int               `json:"count"`
}

// ThrottleStatsResponse describes the live counter cache and the thresholds
// it is evaluated against.
type ThrottleStatsResponse struct {
	Key         string `json:"key"`
	Period      string `json:"period"`
	BeforeCount int    `json:"before_count,omitempty"`
	AfterCount  int    `json:"after_count,omitempty"`
	Counters    int    `json:"counters"`
	MaxCounters int    `json:"max_counters"`
	Evictions   uint64 `json:"evictions"`
}

// CounterResponse reports the live count of one key in the window containing
// Timestamp. Found is false when no event has been counted there, or the
// counter was evicted.
type CounterResponse struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	Slot      int64     `json:"slot"`
	SlotStart time.Time `json:"slot_start"`
	Count     int64     `json:"count"`
	Found     bool      `json:"found"`
}

// ErrorResponse provides structured error information.
type ErrorResponse struct {
	Error     string            `json:"error"`                // Error type (always "error")
	Message   string            `json:"message"`              // Human-readable error description
	Code      string            `json:"code,omitempty"`       // Machine-readable error code
	Details   map[string]string `json:"details,omitempty"`    // Field-specific error details
	Timestamp time.Time         `json:"timestamp"`            // Error occurrence time
	RequestID string            `json:"request_id,omitempty"` // Unique request identifier
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
	Metrics    map[string]interface{}     `json:"metrics,omitempty"`
}

type ComponentHealth struct {
	Status    string                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Health Status Constants
const (
	StatusHealthy   = "healthy"   // All systems operational
	StatusUnhealthy = "unhealthy" // Major system issues
	StatusDegraded  = "degraded"  // Partial functionality
)

// Standard HTTP Error Codes
const (
	ErrorCodeNotFound           = "NOT_FOUND"           // 404: Resource doesn't exist
	ErrorCodeBadRequest         = "BAD_REQUEST"         // 400: Invalid request format
	ErrorCodeInvalidRequest     = "INVALID_REQUEST"     // 400: Invalid request data
	ErrorCodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"   // 413: Body over the configured limit
	ErrorCodeRateLimited        = "RATE_LIMIT_EXCEEDED" // 429: Client sent too many requests
	ErrorCodeInternalError      = "INTERNAL_ERROR"      // 500: Server-side error
	ErrorCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503: Service temporarily down
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// NewBatchProcessResponse summarizes a batch of results.
func NewBatchProcessResponse(results []*ThrottleResult) *BatchProcessResponse {
	resp := &BatchProcessResponse{
		Results: results,
		Total:   len(results),
	}
	for _, r := range results {
		if r.Tagged() {
			resp.Tagged++
		}
	}
	return resp
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
		Metrics:    make(map[string]interface{}),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
	}
}

func (h *HealthCheckResponse) AddMetric(name string, value interface{}) {
	h.Metrics[name] = value
}

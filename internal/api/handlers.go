// Package api exposes the throttle pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"throttler/internal/models"
	"throttler/internal/pipeline"
	"throttler/internal/sink"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 1000
	healthPingTimeout  = 2 * time.Second
)

// Handlers contains HTTP handlers for the throttler API
type Handlers struct {
	service      pipeline.ServiceInterface
	sink         sink.Sink
	version      string
	maxBodyBytes int64
	startedAt    time.Time
}

// HandlerOption configures optional Handlers dependencies.
type HandlerOption func(*Handlers)

// WithSink lets the health check ping the sink.
func WithSink(s sink.Sink) HandlerOption {
	return func(h *Handlers) {
		h.sink = s
	}
}

// WithVersion sets the version reported by the health check.
func WithVersion(v string) HandlerOption {
	return func(h *Handlers) {
		h.version = v
	}
}

// WithMaxBodyBytes limits request bodies; non-positive values keep the default.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandlers creates a new handlers instance
func NewHandlers(service pipeline.ServiceInterface, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		service:      service,
		maxBodyBytes: 1 << 20,
		startedAt:    time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ProcessEvent runs one event through the throttle
// POST /api/v1/events
func (h *Handlers) ProcessEvent(w http.ResponseWriter, r *http.Request) {
	var ev models.Event
	if !h.decodeBody(w, r, &ev) {
		return
	}

	resp, err := h.service.Process(r.Context(), &ev)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// ProcessBatch runs several events through the throttle
// POST /api/v1/events/batch
func (h *Handlers) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchProcessRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	resp, err := h.service.ProcessBatch(r.Context(), req.Events)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// RecentEvents lists the latest processed events held by the sink
// GET /api/v1/events/recent?limit=N
func (h *Handlers) RecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	resp, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// ThrottleStats reports the counter cache state
// GET /api/v1/throttle/stats
func (h *Handlers) ThrottleStats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// ThrottleCounter reports the live count of one key without counting an event
// GET /api/v1/throttle/counters?key=K&timestamp=RFC3339
func (h *Handlers) ThrottleCounter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get("key")
	if key == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "key is required")
		return
	}

	ts := time.Now().UTC()
	if raw := q.Get("timestamp"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "timestamp must be RFC 3339")
			return
		}
		ts = parsed
	}

	resp, err := h.service.Counter(r.Context(), key, ts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// ResetCounters drops every live counter
// DELETE /api/v1/throttle/counters
func (h *Handlers) ResetCounters(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ResetCounters(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// HealthCheck handles health check requests
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = h.version
	response.Uptime = time.Since(h.startedAt).Round(time.Second).String()

	statusCode := http.StatusOK

	if h.sink != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := h.sink.Ping(ctx); err != nil {
			slog.Warn("Sink health check failed", "error", err)
			response.Status = models.StatusUnhealthy
			response.AddComponent("sink", models.StatusUnhealthy, err.Error())
			statusCode = http.StatusServiceUnavailable
		} else {
			response.AddComponent("sink", models.StatusHealthy, "Sink is operational")
		}
	}

	if stats, err := h.service.Stats(r.Context()); err != nil {
		response.AddComponent("throttle", models.StatusDegraded, err.Error())
		if response.Status == models.StatusHealthy {
			response.Status = models.StatusDegraded
		}
	} else {
		response.AddComponent("throttle", models.StatusHealthy, "Throttle is operational")
		response.AddMetric("counters", stats.Counters)
		response.AddMetric("evictions", stats.Evictions)
	}

	h.writeJSONResponse(w, statusCode, response)
}

// decodeBody reads a size-limited JSON body into dst. It writes the error
// response and returns false on failure.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		h.writeErrorResponse(w, http.StatusRequestEntityTooLarge, models.ErrorCodePayloadTooLarge,
			"request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
	case errors.Is(err, io.EOF):
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "request body is empty")
	default:
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "invalid JSON body: "+err.Error())
	}
	return false
}

// writeServiceError maps pipeline errors to HTTP responses
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *pipeline.ServiceError
	if errors.As(err, &svcErr) {
		if svcErr.StatusCode >= http.StatusInternalServerError {
			slog.Error("Request failed", "code", svcErr.Code, "error", err)
		}
		h.writeErrorResponse(w, svcErr.StatusCode, svcErr.Code, svcErr.Error())
		return
	}

	slog.Error("Request failed", "error", err)
	h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "internal server error")
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, statusCode, data)
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	writeJSON(w, statusCode, models.NewErrorResponse(message, errorCode))
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing else can be sent.
		slog.Error("Error encoding JSON response", "error", err)
	}
}

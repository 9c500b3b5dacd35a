package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"throttler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func doRequest(h http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_AllowsThenRejects(t *testing.T) {
	limiter := NewMemoryLimiter(60, 2, time.Minute)
	defer limiter.Close()
	handler := Middleware(limiter, false)(http.HandlerFunc(okHandler))

	for i := 0; i < 2; i++ {
		rr := doRequest(handler, "192.168.1.1:12345", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "60", rr.Header().Get("X-RateLimit-Limit"))
	}

	rr := doRequest(handler, "192.168.1.1:23456", nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, models.ErrorCodeRateLimited, body.Code)

	// Another client is unaffected.
	rr = doRequest(handler, "10.0.0.1:12345", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddleware_ProxyHeaders(t *testing.T) {
	limiter := NewMemoryLimiter(60, 1, time.Minute)
	defer limiter.Close()

	untrusted := Middleware(limiter, false)(http.HandlerFunc(okHandler))
	rr := doRequest(untrusted, "10.0.0.9:1", map[string]string{"X-Forwarded-For": "1.1.1.1"})
	assert.Equal(t, http.StatusOK, rr.Code)
	// Spoofed header does not buy a fresh bucket.
	rr = doRequest(untrusted, "10.0.0.9:1", map[string]string{"X-Forwarded-For": "2.2.2.2"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	trusted := Middleware(limiter, true)(http.HandlerFunc(okHandler))
	rr = doRequest(trusted, "10.0.0.9:1", map[string]string{"X-Forwarded-For": "3.3.3.3"})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		trust   bool
		want    string
	}{
		{"remote addr", "192.168.1.1:1234", nil, false, "192.168.1.1"},
		{"remote addr without port", "192.168.1.1", nil, false, "192.168.1.1"},
		{"ipv6", "[::1]:8080", nil, false, "::1"},
		{"forwarded ignored", "192.168.1.1:1234", map[string]string{"X-Forwarded-For": "9.9.9.9"}, false, "192.168.1.1"},
		{"forwarded first hop", "192.168.1.1:1234", map[string]string{"X-Forwarded-For": "9.9.9.9, 10.0.0.1"}, true, "9.9.9.9"},
		{"real ip", "192.168.1.1:1234", map[string]string{"X-Real-IP": "8.8.8.8"}, true, "8.8.8.8"},
		{"no headers trusted", "192.168.1.1:1234", nil, true, "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req, tt.trust))
		})
	}
}

package api

import (
	"net/http"

	"throttler/internal/models"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return !isHealthPath(r.URL.Path)
			}),
		))
	}
}

// WithRateLimiter applies a per-client limit to every route except health checks.
func WithRateLimiter(middleware func(http.Handler) http.Handler) RouteOption {
	return func(r *mux.Router) {
		r.Use(func(next http.Handler) http.Handler {
			limited := middleware(next)
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if isHealthPath(req.URL.Path) {
					next.ServeHTTP(w, req)
					return
				}
				limited.ServeHTTP(w, req)
			})
		})
	}
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	for _, opt := range opts {
		opt(router)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/events", handlers.ProcessEvent).Methods(http.MethodPost)
	api.HandleFunc("/events/batch", handlers.ProcessBatch).Methods(http.MethodPost)
	api.HandleFunc("/events/recent", handlers.RecentEvents).Methods(http.MethodGet)
	api.HandleFunc("/throttle/stats", handlers.ThrottleStats).Methods(http.MethodGet)
	api.HandleFunc("/throttle/counters", handlers.ThrottleCounter).Methods(http.MethodGet)
	api.HandleFunc("/throttle/counters", handlers.ResetCounters).Methods(http.MethodDelete)

	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/health", handlers.HealthCheck).Methods(http.MethodGet)

	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed,
			models.NewErrorResponse("Method not allowed", models.ErrorCodeInvalidRequest))
	})
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound,
			models.NewErrorResponse("Resource not found", models.ErrorCodeNotFound))
	})

	return router
}

func isHealthPath(path string) bool {
	return path == "/health" || path == "/api/v1/health"
}

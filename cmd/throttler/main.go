package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"throttler/internal/api"
	"throttler/internal/config"
	"throttler/internal/filter"
	"throttler/internal/logger"
	"throttler/internal/observability"
	"throttler/internal/pipeline"
	"throttler/internal/ratelimit"
	"throttler/internal/sink"
	"throttler/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	showVersion = flag.Bool("version", false, "Print version information and exit")
	writeConfig = flag.String("write-example-config", "", "Write an example configuration file to this path and exit")
)

func main() {
	flag.Parse()

	ver := version.GetInfo()
	if *showVersion {
		fmt.Println(ver.String())
		return
	}

	if *writeConfig != "" {
		if err := config.SaveExample(*writeConfig); err != nil {
			slog.Error("Failed to write example configuration", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ver); err != nil {
		slog.Error("Throttler exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ver version.Info) error {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
	if err != nil {
		return fmt.Errorf("initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	sinkInstance, err := sink.NewFactory().Create(cfg.Sink)
	if err != nil {
		return fmt.Errorf("initialize sink: %w", err)
	}
	defer sinkInstance.Close()

	var activeSink sink.Sink = sinkInstance
	if cfg.Metrics.Enabled || otelProvider.TracingEnabled() {
		instrumented, err := observability.NewInstrumentedSink(sinkInstance)
		if err != nil {
			return fmt.Errorf("instrument sink: %w", err)
		}
		activeSink = instrumented
	}

	throttleFilter, err := filter.NewFromConfig(cfg.Throttle)
	if err != nil {
		return fmt.Errorf("initialize throttle filter: %w", err)
	}

	registration, err := observability.RegisterThrottleMetrics(throttleFilter.Throttler().Stats)
	if err != nil {
		return fmt.Errorf("register throttle metrics: %w", err)
	}
	defer registration.Unregister()

	var service pipeline.ServiceInterface = pipeline.NewService(throttleFilter, activeSink, cfg.Pipeline)
	if cfg.Metrics.Enabled || otelProvider.TracingEnabled() {
		instrumented, err := observability.NewInstrumentedService(service)
		if err != nil {
			return fmt.Errorf("instrument pipeline: %w", err)
		}
		service = instrumented
	}

	handlers := api.NewHandlers(service,
		api.WithSink(activeSink),
		api.WithVersion(ver.Version),
		api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	routeOpts := []api.RouteOption{}
	if otelProvider.TracingEnabled() {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}
	if limiter := ratelimit.NewFromConfig(cfg.Server.RateLimit); limiter != nil {
		defer limiter.Close()
		routeOpts = append(routeOpts, api.WithRateLimiter(
			ratelimit.Middleware(limiter, cfg.Server.RateLimit.TrustProxyHeaders),
		))
	}

	router := api.SetupRoutes(handlers, routeOpts...)

	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server",
			"addr", server.Addr,
			"tls", cfg.Server.TLSEnabled,
			"key", cfg.Throttle.Key,
			"period", cfg.Throttle.Period,
			"before_count", cfg.Throttle.BeforeCount,
			"after_count", cfg.Throttle.AfterCount,
			"max_counters", cfg.Throttle.MaxCounters,
			"sink", cfg.Sink.Type,
		)

		var err error
		if cfg.Server.TLSEnabled {
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		slog.Info("Shutting down server", "signal", sig.String())
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	stats := throttleFilter.Throttler().Stats()
	slog.Info("Server shutdown complete",
		"counters", stats.Counters,
		"evictions", stats.Evictions,
	)
	return nil
}

// Package models - Service configuration and operational settings.
// This file defines the configuration tree for the throttler service.
//
// Configuration Philosophy:
// - Hierarchical configuration grouped by component (server, throttle, sink, etc.)
// - Defaults that run out of the box with an in-memory sink
// - Validation at load time so per-event processing never fails on configuration
package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sink type constants
const (
	SinkTypeNone     = "none"
	SinkTypeMemory   = "memory"
	SinkTypeSQLite   = "sqlite"
	SinkTypePostgres = "postgres"
)

// DefaultThrottleTag is applied to events in the build-up or overflow phase
// when no add_tag list is configured.
const DefaultThrottleTag = "throttled"

// Config is the root configuration structure containing all service settings.
//
// Configuration Structure:
// - Server: HTTP server and network settings
// - Throttle: Grouping key template, window period, thresholds and tagging
// - Pipeline: Worker fan-out for batch processing
// - Sink: Where processed events are written for inspection
// - Logging: Structured logging and output configuration
// - Metrics: Prometheus endpoint
// - Observability: OpenTelemetry tracing
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`               // HTTP server configuration
	Throttle      ThrottleConfig      `yaml:"throttle" json:"throttle"`           // Rate gate settings
	Pipeline      PipelineConfig      `yaml:"pipeline" json:"pipeline"`           // Worker settings
	Sink          SinkConfig          `yaml:"sink" json:"sink"`                   // Processed event output
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`             // Logging and output configuration
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`             // Monitoring and metrics
	Observability ObservabilityConfig `yaml:"observability" json:"observability"` // Tracing
}

type ServerConfig struct {
	Port         int             `yaml:"port" json:"port"`
	Host         string          `yaml:"host" json:"host"`
	ReadTimeout  time.Duration   `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration   `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration   `yaml:"idle_timeout" json:"idle_timeout"`
	MaxBodyBytes int64           `yaml:"max_body_bytes" json:"max_body_bytes"`
	TLSEnabled   bool            `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string          `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string          `yaml:"tls_key_file" json:"tls_key_file"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig bounds how fast a single client may submit requests to the
// API. It protects the service itself and is unrelated to event throttling.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int           `yaml:"burst_size" json:"burst_size"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
	TrustProxyHeaders bool          `yaml:"trust_proxy_headers" json:"trust_proxy_headers"`
}

// ThrottleConfig mirrors the options of a throttle filter.
//
// Key is a template such as "%{host}%{message}" resolved per event. Events
// whose count in the current period is below BeforeCount or above AfterCount
// receive AddTags and AddFields. A zero BeforeCount or AfterCount disables
// that side; MaxCounters of zero leaves the counter cache unbounded.
type ThrottleConfig struct {
	Key         string            `yaml:"key" json:"key"`
	Period      time.Duration     `yaml:"period" json:"period"`
	BeforeCount int               `yaml:"before_count" json:"before_count"`
	AfterCount  int               `yaml:"after_count" json:"after_count"`
	MaxCounters int               `yaml:"max_counters" json:"max_counters"`
	AddTags     []string          `yaml:"add_tag" json:"add_tag"`
	AddFields   map[string]string `yaml:"add_field" json:"add_field"`
}

// UnmarshalYAML decodes a throttle section, accepting period either as a
// duration string ("90s") or as a whole number of seconds (60).
func (tc *ThrottleConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain ThrottleConfig
	if node.Kind != yaml.MappingNode {
		return node.Decode((*plain)(tc))
	}

	var period *yaml.Node
	rest := *node
	rest.Content = make([]*yaml.Node, 0, len(node.Content))
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "period" {
			period = node.Content[i+1]
			continue
		}
		rest.Content = append(rest.Content, node.Content[i], node.Content[i+1])
	}

	if err := rest.Decode((*plain)(tc)); err != nil {
		return err
	}
	if period == nil {
		return nil
	}
	d, err := ParsePeriod(period.Value)
	if err != nil {
		return fmt.Errorf("line %d: period: %w", period.Line, err)
	}
	tc.Period = d
	return nil
}

// ParsePeriod reads a throttle period. A bare integer is a number of seconds;
// anything else must be a Go duration string.
func ParsePeriod(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n > math.MaxInt64/int64(time.Second) || n < math.MinInt64/int64(time.Second) {
			return 0, fmt.Errorf("period of %d seconds is out of range", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid period %q: want seconds or a duration such as 90s", v)
	}
	return d, nil
}

type PipelineConfig struct {
	Workers      int `yaml:"workers" json:"workers"`
	MaxBatchSize int `yaml:"max_batch_size" json:"max_batch_size"`
}

type SinkConfig struct {
	Type      string `yaml:"type" json:"type"`
	DSN       string `yaml:"dsn" json:"dsn"`
	MaxEvents int    `yaml:"max_events" json:"max_events"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with production-ready defaults.
//
// Default Values Rationale:
// - Port 8080: Standard non-privileged HTTP port
// - Key "%{host}" with a 60s period and after_count 1000: one bucket per host per minute
// - max_counters 100000: bounded memory for high-cardinality keys
// - One pipeline worker: batches are evaluated in arrival order
// - Memory sink: inspection of recent events without external dependencies
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 1 << 20,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 6000,
				BurstSize:         100,
				CleanupInterval:   5 * time.Minute,
			},
		},
		Throttle: ThrottleConfig{
			Key:         "%{host}",
			Period:      60 * time.Second,
			AfterCount:  1000,
			MaxCounters: 100000,
			AddTags:     []string{DefaultThrottleTag},
			AddFields:   map[string]string{},
		},
		Pipeline: PipelineConfig{
			Workers:      1,
			MaxBatchSize: 1000,
		},
		Sink: SinkConfig{
			Type:      SinkTypeMemory,
			MaxEvents: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "throttler",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Throttle.Validate(); err != nil {
		return fmt.Errorf("invalid throttle config: %w", err)
	}

	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}

	if err := c.Sink.Validate(); err != nil {
		return fmt.Errorf("invalid sink config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 {
		return errors.New("read timeout cannot be negative")
	}

	if sc.WriteTimeout < 0 {
		return errors.New("write timeout cannot be negative")
	}

	if sc.IdleTimeout < 0 {
		return errors.New("idle timeout cannot be negative")
	}

	if sc.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be positive")
	}

	if err := sc.RateLimit.Validate(); err != nil {
		return err
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

func (rc *RateLimitConfig) Validate() error {
	if !rc.Enabled {
		return nil
	}

	if rc.RequestsPerMinute <= 0 {
		return errors.New("requests per minute must be positive when rate limiting is enabled")
	}

	if rc.BurstSize <= 0 {
		return errors.New("burst size must be positive when rate limiting is enabled")
	}

	if rc.CleanupInterval <= 0 {
		return errors.New("cleanup interval must be positive when rate limiting is enabled")
	}

	return nil
}

// Validate enforces the construction-time rules of the throttle: a positive
// period, non-negative thresholds with at least one of them set, ordered
// bounds and a non-negative counter capacity.
func (tc *ThrottleConfig) Validate() error {
	if tc.Key == "" {
		return errors.New("key cannot be empty")
	}

	if tc.Period <= 0 {
		return errors.New("period must be positive")
	}

	if tc.BeforeCount < 0 {
		return errors.New("before count cannot be negative")
	}

	if tc.AfterCount < 0 {
		return errors.New("after count cannot be negative")
	}

	if tc.BeforeCount == 0 && tc.AfterCount == 0 {
		return errors.New("at least one of before count or after count must be set")
	}

	if tc.BeforeCount > 0 && tc.AfterCount > 0 && tc.BeforeCount > tc.AfterCount {
		return fmt.Errorf("before count %d cannot exceed after count %d", tc.BeforeCount, tc.AfterCount)
	}

	if tc.MaxCounters < 0 {
		return errors.New("max counters cannot be negative")
	}

	for _, tag := range tc.AddTags {
		if tag == "" {
			return errors.New("tags cannot be empty")
		}
	}

	for name := range tc.AddFields {
		if name == "" {
			return errors.New("field names cannot be empty")
		}
	}

	return nil
}

func (pc *PipelineConfig) Validate() error {
	if pc.Workers <= 0 {
		return errors.New("workers must be positive")
	}

	if pc.MaxBatchSize <= 0 {
		return errors.New("max batch size must be positive")
	}

	return nil
}

func (sc *SinkConfig) Validate() error {
	switch sc.Type {
	case SinkTypeNone:
		return nil
	case SinkTypeMemory:
		if sc.MaxEvents <= 0 {
			return errors.New("max events must be positive for memory sink")
		}
		return nil
	case SinkTypeSQLite, SinkTypePostgres:
		if sc.DSN == "" {
			return fmt.Errorf("DSN is required for %s sink", sc.Type)
		}
		return nil
	default:
		return fmt.Errorf("invalid sink type: %s", sc.Type)
	}
}

func (lc *LoggingConfig) Validate() error {
	if !oneOf(lc.Level, "debug", "info", "warn", "error") {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	if !oneOf(lc.Format, "json", "text") {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	if !oneOf(lc.Output, "stdout", "stderr", "file") {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if !oc.Tracing.Enabled {
		return nil
	}

	if oc.ServiceName == "" {
		return errors.New("service name cannot be empty when tracing is enabled")
	}

	if !oneOf(oc.Tracing.Exporter, "stdout", "otlp") {
		return fmt.Errorf("invalid trace exporter: %s", oc.Tracing.Exporter)
	}

	if oc.Tracing.Exporter == "otlp" && oc.Tracing.OTLPEndpoint == "" {
		return errors.New("OTLP endpoint is required when exporter is otlp")
	}

	if oc.Tracing.SampleRate < 0 || oc.Tracing.SampleRate > 1 {
		return errors.New("sample rate must be between 0 and 1")
	}

	return nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

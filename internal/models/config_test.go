package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	// Test server defaults
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, config.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, config.Server.IdleTimeout)
	assert.Equal(t, int64(1<<20), config.Server.MaxBodyBytes)
	assert.False(t, config.Server.TLSEnabled)

	// Test throttle defaults
	assert.Equal(t, "%{host}", config.Throttle.Key)
	assert.Equal(t, 60*time.Second, config.Throttle.Period)
	assert.Equal(t, 0, config.Throttle.BeforeCount)
	assert.Equal(t, 1000, config.Throttle.AfterCount)
	assert.Equal(t, 100000, config.Throttle.MaxCounters)
	assert.Equal(t, []string{"throttled"}, config.Throttle.AddTags)
	assert.NotNil(t, config.Throttle.AddFields)

	// Test pipeline and sink defaults
	assert.Equal(t, 1, config.Pipeline.Workers)
	assert.Equal(t, 1000, config.Pipeline.MaxBatchSize)
	assert.Equal(t, SinkTypeMemory, config.Sink.Type)
	assert.Equal(t, 1000, config.Sink.MaxEvents)

	// Test logging defaults
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "stdout", config.Logging.Output)

	// Test metrics defaults
	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, "/metrics", config.Metrics.Path)
	assert.Equal(t, 9090, config.Metrics.Port)

	// Test observability defaults
	assert.Equal(t, "throttler", config.Observability.ServiceName)
	assert.False(t, config.Observability.Tracing.Enabled)
	assert.Equal(t, "stdout", config.Observability.Tracing.Exporter)
	assert.Equal(t, 1.0, config.Observability.Tracing.SampleRate)

	assert.NoError(t, config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{"valid default config", func(c *Config) {}, ""},
		{"invalid server config", func(c *Config) { c.Server.Port = -1 }, "invalid server config"},
		{"invalid throttle config", func(c *Config) { c.Throttle.Period = 0 }, "invalid throttle config"},
		{"invalid pipeline config", func(c *Config) { c.Pipeline.Workers = 0 }, "invalid pipeline config"},
		{"invalid sink config", func(c *Config) { c.Sink.Type = "kafka" }, "invalid sink config"},
		{"invalid logging config", func(c *Config) { c.Logging.Level = "trace" }, "invalid logging config"},
		{"invalid metrics config", func(c *Config) { c.Metrics.Path = "" }, "invalid metrics config"},
		{"invalid observability config", func(c *Config) {
			c.Observability.Tracing.Enabled = true
			c.Observability.Tracing.Exporter = "zipkin"
		}, "invalid observability config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			err := config.Validate()

			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestServerConfig_Validate(t *testing.T) {
	valid := func() ServerConfig {
		return ServerConfig{
			Port:         8080,
			Host:         "localhost",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 1024,
		}
	}

	tests := []struct {
		name     string
		mutate   func(sc *ServerConfig)
		errorMsg string
	}{
		{"valid config", func(sc *ServerConfig) {}, ""},
		{"invalid port - negative", func(sc *ServerConfig) { sc.Port = -1 }, "port must be between 1 and 65535"},
		{"invalid port - too high", func(sc *ServerConfig) { sc.Port = 70000 }, "port must be between 1 and 65535"},
		{"empty host", func(sc *ServerConfig) { sc.Host = "" }, "host cannot be empty"},
		{"negative read timeout", func(sc *ServerConfig) { sc.ReadTimeout = -time.Second }, "read timeout cannot be negative"},
		{"negative write timeout", func(sc *ServerConfig) { sc.WriteTimeout = -time.Second }, "write timeout cannot be negative"},
		{"negative idle timeout", func(sc *ServerConfig) { sc.IdleTimeout = -time.Second }, "idle timeout cannot be negative"},
		{"zero body limit", func(sc *ServerConfig) { sc.MaxBodyBytes = 0 }, "max body bytes must be positive"},
		{"TLS enabled without cert file", func(sc *ServerConfig) {
			sc.TLSEnabled = true
			sc.TLSKeyFile = "/path/to/key.pem"
		}, "TLS cert file is required when TLS is enabled"},
		{"TLS enabled without key file", func(sc *ServerConfig) {
			sc.TLSEnabled = true
			sc.TLSCertFile = "/path/to/cert.pem"
		}, "TLS key file is required when TLS is enabled"},
		{"TLS enabled with both files", func(sc *ServerConfig) {
			sc.TLSEnabled = true
			sc.TLSCertFile = "/path/to/cert.pem"
			sc.TLSKeyFile = "/path/to/key.pem"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)
			err := config.Validate()

			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestThrottleConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		config   ThrottleConfig
		errorMsg string
	}{
		{
			name:   "after count only",
			config: ThrottleConfig{Key: "%{host}", Period: time.Minute, AfterCount: 2},
		},
		{
			name:   "before count only",
			config: ThrottleConfig{Key: "%{host}", Period: time.Minute, BeforeCount: 3},
		},
		{
			name:   "both counts with capacity",
			config: ThrottleConfig{Key: "%{host}", Period: time.Minute, BeforeCount: 2, AfterCount: 3, MaxCounters: 10},
		},
		{
			name:     "empty key",
			config:   ThrottleConfig{Period: time.Minute, AfterCount: 2},
			errorMsg: "key cannot be empty",
		},
		{
			name:     "zero period",
			config:   ThrottleConfig{Key: "%{host}", AfterCount: 2},
			errorMsg: "period must be positive",
		},
		{
			name:     "negative period",
			config:   ThrottleConfig{Key: "%{host}", Period: -time.Second, AfterCount: 2},
			errorMsg: "period must be positive",
		},
		{
			name:     "no thresholds",
			config:   ThrottleConfig{Key: "%{host}", Period: time.Minute},
			errorMsg: "at least one of before count or after count must be set",
		},
		{
			name:     "negative before count",
			config:   ThrottleConfig{Key: "%{host}", Period: time.Minute, BeforeCount: -1, AfterCount: 2},
			errorMsg: "before count cannot be negative",
		},
		{
			name:     "negative after count",
			config:   ThrottleConfig{Key: "%{host}", Period: time.Minute, AfterCount: -1, BeforeCount: 2},
			errorMsg: "after count cannot be negative",
		},
		{
			name:     "inverted thresholds",
			config:   ThrottleConfig{Key: "%{host}", Period: time.Minute, BeforeCount: 5, AfterCount: 3},
			errorMsg: "before count 5 cannot exceed after count 3",
		},
		{
			name:     "negative max counters",
			config:   ThrottleConfig{Key: "%{host}", Period: time.Minute, AfterCount: 3, MaxCounters: -1},
			errorMsg: "max counters cannot be negative",
		},
		{
			name:     "empty tag",
			config:   ThrottleConfig{Key: "%{host}", Period: time.Minute, AfterCount: 3, AddTags: []string{""}},
			errorMsg: "tags cannot be empty",
		},
		{
			name:     "empty field name",
			config:   ThrottleConfig{Key: "%{host}", Period: time.Minute, AfterCount: 3, AddFields: map[string]string{"": "x"}},
			errorMsg: "field names cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestSinkConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		config   SinkConfig
		errorMsg string
	}{
		{"none", SinkConfig{Type: SinkTypeNone}, ""},
		{"memory", SinkConfig{Type: SinkTypeMemory, MaxEvents: 10}, ""},
		{"memory without capacity", SinkConfig{Type: SinkTypeMemory}, "max events must be positive"},
		{"sqlite", SinkConfig{Type: SinkTypeSQLite, DSN: "file:events.db"}, ""},
		{"sqlite without DSN", SinkConfig{Type: SinkTypeSQLite}, "DSN is required for sqlite sink"},
		{"postgres without DSN", SinkConfig{Type: SinkTypePostgres}, "DSN is required for postgres sink"},
		{"unknown", SinkConfig{Type: "s3"}, "invalid sink type: s3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestLoggingConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		config   LoggingConfig
		errorMsg string
	}{
		{"valid", LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}, ""},
		{"invalid level", LoggingConfig{Level: "verbose", Format: "json", Output: "stdout"}, "invalid log level: verbose"},
		{"invalid format", LoggingConfig{Level: "info", Format: "xml", Output: "stdout"}, "invalid log format: xml"},
		{"invalid output", LoggingConfig{Level: "info", Format: "json", Output: "syslog"}, "invalid log output: syslog"},
		{"file without path", LoggingConfig{Level: "info", Format: "json", Output: "file"}, "file path is required when output is file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestObservabilityConfig_Validate(t *testing.T) {
	disabled := ObservabilityConfig{}
	assert.NoError(t, disabled.Validate())

	otlp := ObservabilityConfig{
		ServiceName: "throttler",
		Tracing:     TracingConfig{Enabled: true, Exporter: "otlp", SampleRate: 0.5},
	}
	err := otlp.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "OTLP endpoint is required")

	otlp.Tracing.OTLPEndpoint = "localhost:4317"
	assert.NoError(t, otlp.Validate())

	otlp.Tracing.SampleRate = 1.5
	assert.Error(t, otlp.Validate())
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"60", time.Minute},
		{" 3600 ", time.Hour},
		{"0", 0},
		{"-5", -5 * time.Second},
		{"90s", 90 * time.Second},
		{"1500ms", 1500 * time.Millisecond},
		{"2h", 2 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "often", "1.5", "9223372037"} {
		_, err := ParsePeriod(bad)
		assert.Error(t, err, bad)
	}
}

func TestThrottleConfig_UnmarshalYAML(t *testing.T) {
	tc := ThrottleConfig{Key: "%{host}", Period: time.Hour, AfterCount: 9}
	require.NoError(t, yaml.Unmarshal([]byte("period: 60\nbefore_count: 2\n"), &tc))
	assert.Equal(t, time.Minute, tc.Period)
	assert.Equal(t, 2, tc.BeforeCount)
	assert.Equal(t, 9, tc.AfterCount)
	assert.Equal(t, "%{host}", tc.Key)

	require.NoError(t, yaml.Unmarshal([]byte("key: \"%{client}\"\n"), &tc))
	assert.Equal(t, time.Minute, tc.Period)
	assert.Equal(t, "%{client}", tc.Key)

	err := yaml.Unmarshal([]byte("period: soon\n"), &tc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")

	// Encoded configs read back unchanged.
	out, err := yaml.Marshal(ThrottleConfig{Key: "%{host}", Period: 90 * time.Second, AfterCount: 5})
	require.NoError(t, err)
	var back ThrottleConfig
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, 90*time.Second, back.Period)
	assert.Equal(t, 5, back.AfterCount)
}

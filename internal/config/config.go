package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"throttler/internal/models"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "THROTTLER_"

// Load loads configuration from file and environment variables
func Load(configPath string) (*models.Config, error) {
	config := models.NewDefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := loadFromEnvironment(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// knownSections lists the top-level keys the decoder understands.
var knownSections = map[string]bool{
	"server":        true,
	"throttle":      true,
	"pipeline":      true,
	"sink":          true,
	"logging":       true,
	"metrics":       true,
	"observability": true,
}

// warnUnknownSections logs a warning for each top-level key that the decoder
// will ignore, typically a typo or a section carried over from another service.
func warnUnknownSections(data []byte) {
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return
	}

	unknown := make([]string, 0)
	for key := range top {
		if !knownSections[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	for _, key := range unknown {
		slog.Warn("Config section is not recognised and will be ignored", "config_key", key)
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	warnUnknownSections(data)
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// envBinding ties one environment variable to the config field it overrides.
type envBinding struct {
	name  string
	apply func(value string) error
}

func envBindings(c *models.Config) []envBinding {
	return []envBinding{
		// Server
		{"PORT", setInt(&c.Server.Port)},
		{"HOST", setString(&c.Server.Host)},
		{"READ_TIMEOUT", setDuration(&c.Server.ReadTimeout)},
		{"WRITE_TIMEOUT", setDuration(&c.Server.WriteTimeout)},
		{"IDLE_TIMEOUT", setDuration(&c.Server.IdleTimeout)},
		{"MAX_BODY_BYTES", setInt64(&c.Server.MaxBodyBytes)},
		{"TLS_ENABLED", setBool(&c.Server.TLSEnabled)},
		{"TLS_CERT_FILE", setString(&c.Server.TLSCertFile)},
		{"TLS_KEY_FILE", setString(&c.Server.TLSKeyFile)},
		{"RATE_LIMIT_ENABLED", setBool(&c.Server.RateLimit.Enabled)},
		{"RATE_LIMIT_REQUESTS_PER_MINUTE", setInt(&c.Server.RateLimit.RequestsPerMinute)},
		{"RATE_LIMIT_BURST_SIZE", setInt(&c.Server.RateLimit.BurstSize)},
		{"RATE_LIMIT_CLEANUP_INTERVAL", setDuration(&c.Server.RateLimit.CleanupInterval)},
		{"RATE_LIMIT_TRUST_PROXY_HEADERS", setBool(&c.Server.RateLimit.TrustProxyHeaders)},

		// Throttle
		{"THROTTLE_KEY", setString(&c.Throttle.Key)},
		{"THROTTLE_PERIOD", setPeriod(&c.Throttle.Period)},
		{"THROTTLE_BEFORE_COUNT", setInt(&c.Throttle.BeforeCount)},
		{"THROTTLE_AFTER_COUNT", setInt(&c.Throttle.AfterCount)},
		{"THROTTLE_MAX_COUNTERS", setInt(&c.Throttle.MaxCounters)},
		{"THROTTLE_ADD_TAG", setList(&c.Throttle.AddTags)},

		// Pipeline
		{"PIPELINE_WORKERS", setInt(&c.Pipeline.Workers)},
		{"PIPELINE_MAX_BATCH_SIZE", setInt(&c.Pipeline.MaxBatchSize)},

		// Sink
		{"SINK_TYPE", setString(&c.Sink.Type)},
		{"SINK_DSN", setString(&c.Sink.DSN)},
		{"SINK_MAX_EVENTS", setInt(&c.Sink.MaxEvents)},

		// Logging
		{"LOG_LEVEL", setString(&c.Logging.Level)},
		{"LOG_FORMAT", setString(&c.Logging.Format)},
		{"LOG_OUTPUT", setString(&c.Logging.Output)},
		{"LOG_FILE_PATH", setString(&c.Logging.FilePath)},

		// Metrics
		{"METRICS_ENABLED", setBool(&c.Metrics.Enabled)},
		{"METRICS_PATH", setString(&c.Metrics.Path)},
		{"METRICS_PORT", setInt(&c.Metrics.Port)},

		// Observability
		{"SERVICE_NAME", setString(&c.Observability.ServiceName)},
		{"TRACING_ENABLED", setBool(&c.Observability.Tracing.Enabled)},
		{"TRACING_EXPORTER", setString(&c.Observability.Tracing.Exporter)},
		{"TRACING_OTLP_ENDPOINT", setString(&c.Observability.Tracing.OTLPEndpoint)},
		{"TRACING_SAMPLE_RATE", setFloat(&c.Observability.Tracing.SampleRate)},
	}
}

// loadFromEnvironment applies THROTTLER_* overrides. Empty variables are
// ignored; malformed values are reported instead of being dropped.
func loadFromEnvironment(config *models.Config) error {
	for _, b := range envBindings(config) {
		name := EnvPrefix + b.name
		value, ok := os.LookupEnv(name)
		if !ok || value == "" {
			continue
		}
		if err := b.apply(value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		*dst = n
		return nil
	}
}

func setInt64(dst *int64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		*dst = n
		return nil
	}
}

func setFloat(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", v)
		}
		*dst = f
		return nil
	}
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid boolean %q", v)
		}
		*dst = b
		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q", v)
		}
		*dst = d
		return nil
	}
}

// setPeriod accepts whole seconds as well as duration strings.
func setPeriod(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := models.ParsePeriod(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

// setList splits a comma separated value, dropping blank items.
func setList(dst *[]string) func(string) error {
	return func(v string) error {
		items := make([]string, 0)
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst = items
		return nil
	}
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()

	// Tag the first event of each host+program pair per minute and every
	// event after the hundredth.
	config.Throttle.Key = "%{host}%{program}"
	config.Throttle.BeforeCount = 2
	config.Throttle.AfterCount = 100
	config.Throttle.AddFields = map[string]string{"throttled_key": "%{host}"}

	config.Sink.Type = models.SinkTypeSQLite
	config.Sink.DSN = "file:./data/throttler.db"

	config.Server.TLSEnabled = false
	config.Server.TLSCertFile = "/path/to/cert.pem"
	config.Server.TLSKeyFile = "/path/to/key.pem"

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

package sink

import (
	"fmt"

	"throttler/internal/models"
)

// Factory creates sink instances from configuration.
type Factory struct{}

// NewFactory creates a new sink factory
func NewFactory() *Factory {
	return &Factory{}
}

// Create instantiates a sink based on the provided configuration.
// Supported types:
//   - none: results are dropped
//   - memory: bounded in-memory ring of recent results
//   - sqlite: SQLite database file
//   - postgres: PostgreSQL database
func (f *Factory) Create(config models.SinkConfig) (Sink, error) {
	switch config.Type {
	case models.SinkTypeNone:
		return NewDiscardSink(), nil
	case models.SinkTypeMemory:
		s, err := NewMemorySink(config.MaxEvents)
		if err != nil {
			return nil, err
		}
		return s, nil
	case models.SinkTypeSQLite:
		s, err := NewSQLiteSink(config.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case models.SinkTypePostgres:
		s, err := NewPostgresSink(config.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", config.Type)
	}
}

// GetSupportedProviders returns a list of all supported sink types
func (f *Factory) GetSupportedProviders() []string {
	return []string{models.SinkTypeNone, models.SinkTypeMemory, models.SinkTypeSQLite, models.SinkTypePostgres}
}

package postgresstore

import (
	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

const (
	defaultEventTableName = "events"
	defaultViewTableName  = "views"
)

// Option defines a functional option for configuring the EventStore and the ViewRepository.
type Option func(*settings) error

type settings struct {
	eventTableName string
	viewTableName  string
	observer
}

func newSettings(options []Option) (settings, error) {
	s := settings{eventTableName: defaultEventTableName, viewTableName: defaultViewTableName}

	for _, option := range options {
		if err := option(&s); err != nil {
			return settings{}, err
		}
	}

	return s, nil
}

// WithEventTableName sets the name of the events table.
func WithEventTableName(tableName string) Option {
	return func(s *settings) error {
		if tableName == "" {
			return ErrEmptyTableNameSupplied
		}

		s.eventTableName = tableName

		return nil
	}
}

// WithViewTableName sets the name of the views table.
func WithViewTableName(tableName string) Option {
	return func(s *settings) error {
		if tableName == "" {
			return ErrEmptyTableNameSupplied
		}

		s.viewTableName = tableName

		return nil
	}
}

// WithLogger sets the logger.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: Event counts, durations, concurrency conflicts (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger cqrs.Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger, which receives the same messages
// with the operation context, e.g. for trace correlation.
func WithContextualLogger(logger cqrs.ContextualLogger) Option {
	return func(s *settings) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
// It receives load and commit durations, committed event counts, concurrency conflicts and database errors.
func WithMetrics(collector cqrs.MetricsCollector) Option {
	return func(s *settings) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector, every load, commit and view operation gets its own span.
func WithTracing(collector cqrs.TracingCollector) Option {
	return func(s *settings) error {
		s.tracingCollector = collector
		return nil
	}
}

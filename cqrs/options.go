package cqrs

// Option defines a functional option for configuring the Framework.
type Option func(*observability) error

// WithLogger sets the logger for the Framework.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: per-phase progress of a step (development use)
// Info level: completed steps, committed event counts, concurrency conflicts (production-safe)
// Error level: failed steps, including which reactor failed.
func WithLogger(logger Logger) Option {
	return func(o *observability) error {
		o.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Framework.
// The contextual logger receives the same messages as the Logger, with the step context attached.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(o *observability) error {
		o.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Framework.
// It receives step durations, step counts by status, committed event counts and reactor failures.
func WithMetrics(collector MetricsCollector) Option {
	return func(o *observability) error {
		o.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Framework.
// Every step is wrapped in one span, the span context is propagated to the store, queries and reactors.
func WithTracing(collector TracingCollector) Option {
	return func(o *observability) error {
		o.tracingCollector = collector
		return nil
	}
}

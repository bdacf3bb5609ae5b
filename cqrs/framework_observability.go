package cqrs

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	logMsgStepCompleted       = "cqrs: step completed"
	logMsgStepFailed          = "cqrs: step failed"
	logMsgEventsCommitted     = "cqrs: events committed"
	logMsgFollowUpsCommitted  = "cqrs: follow-up events committed"
	logMsgReactorFailed       = "cqrs: reactor failed"
	logMsgConcurrencyConflict = "cqrs: concurrency conflict detected"
	logMsgNoEvents            = "cqrs: command produced no events"
	logAttrError              = "error"
	logAttrErrorType          = "error_type"
	logAttrAggregateType      = "aggregate_type"
	logAttrAggregateID        = "aggregate_id"
	logAttrEventCount         = "event_count"
	logAttrFollowUpCount      = "follow_up_count"
	logAttrReactorIndex       = "reactor_index"
	logAttrDurationMS         = "duration_ms"

	spanNameStep        = "cqrs.step"
	spanAttrAggregate   = "aggregate_type"
	spanAttrAggregateID = "aggregate_id"
	spanAttrEventCount  = "event_count"
	spanAttrErrorType   = "error_type"
	spanAttrDurationMS  = "duration_ms"

	metricStepDuration    = "cqrs_step_duration_seconds"
	metricSteps           = "cqrs_steps_total"
	metricEventsCommitted = "cqrs_events_committed"
	metricReactorErrors   = "cqrs_reactor_errors_total"
	labelAggregateType    = "aggregate_type"
	labelStatus           = "status"
	labelErrorType        = "error_type"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeLoadFailed          = "load_failed"
	errorTypeCommandRejected     = "command_rejected"
	errorTypeCommitFailed        = "commit_failed"
	errorTypeConcurrencyConflict = "concurrency_conflict"
	errorTypeReactorFailed       = "reactor_failed"
	errorTypeCanceled            = "context_canceled"
	errorTypeDeadlineExceeded    = "context_deadline_exceeded"
	errorTypeInvalidInput        = "invalid_input"
)

// observability bundles the optional logging, metrics and tracing collaborators of the Framework.
type observability struct {
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// logOperation logs operational information at info level to both loggers if configured.
func (o *observability) logOperation(ctx context.Context, msg string, args ...any) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}

	if o.contextualLogger != nil {
		o.contextualLogger.InfoContext(ctx, msg, args...)
	}
}

// logDebug logs progress information at debug level to both loggers if configured.
func (o *observability) logDebug(ctx context.Context, msg string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}

	if o.contextualLogger != nil {
		o.contextualLogger.DebugContext(ctx, msg, args...)
	}
}

// logError logs error information at error level to both loggers if configured.
func (o *observability) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if o.logger != nil {
		o.logger.Error(msg, allArgs...)
	}

	if o.contextualLogger != nil {
		o.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// classifyError maps a failed phase and its error to the error_type label.
func classifyError(phase string, err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return errorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeDeadlineExceeded
	case errors.Is(err, ErrConcurrencyConflict):
		return errorTypeConcurrencyConflict
	default:
		return phase
	}
}

// === Tracing ===

// stepTracingObserver encapsulates the span lifecycle of one step.
type stepTracingObserver struct {
	o     *observability
	span  SpanContext
	start time.Time
}

// startStepTracing starts the step span if the tracing collector is configured.
func (o *observability) startStepTracing(ctx context.Context, aggregateType, aggregateID string) (*stepTracingObserver, context.Context) {
	observer := &stepTracingObserver{o: o, start: time.Now()}

	if o.tracingCollector == nil {
		return observer, ctx
	}

	spanCtx, span := o.tracingCollector.StartSpan(ctx, spanNameStep, map[string]string{
		spanAttrAggregate:   aggregateType,
		spanAttrAggregateID: aggregateID,
	})
	observer.span = span

	return observer, spanCtx
}

// finishSuccess completes the step span for a successful step.
func (sto *stepTracingObserver) finishSuccess(eventCount int) {
	if sto.span == nil {
		return
	}

	attrs := map[string]string{
		spanAttrEventCount: fmt.Sprintf("%d", eventCount),
		spanAttrDurationMS: fmt.Sprintf("%.2f", toMilliseconds(time.Since(sto.start))),
	}

	sto.span.SetStatus(statusSuccess)
	sto.o.tracingCollector.FinishSpan(sto.span, statusSuccess, attrs)
}

// finishError completes the step span with error details.
func (sto *stepTracingObserver) finishError(errorType string) {
	if sto.span == nil {
		return
	}

	sto.span.SetStatus(statusError)
	sto.span.AddAttribute(spanAttrErrorType, errorType)
	sto.o.tracingCollector.FinishSpan(sto.span, statusError, map[string]string{spanAttrErrorType: errorType})
}

// === Metrics ===

// stepMetricsObserver encapsulates the metrics collection of one step.
type stepMetricsObserver struct {
	o             *observability
	ctx           context.Context
	aggregateType string
	start         time.Time
}

// startStepMetrics creates a new metrics observer for one step.
func (o *observability) startStepMetrics(ctx context.Context, aggregateType string) *stepMetricsObserver {
	return &stepMetricsObserver{o: o, ctx: ctx, aggregateType: aggregateType, start: time.Now()}
}

func (smo *stepMetricsObserver) elapsed() time.Duration {
	return time.Since(smo.start)
}

// recordSuccess records all metrics for a successful step.
func (smo *stepMetricsObserver) recordSuccess(eventCount int) {
	labels := map[string]string{labelAggregateType: smo.aggregateType, labelStatus: statusSuccess}

	smo.o.recordDuration(smo.ctx, metricStepDuration, time.Since(smo.start), labels)
	smo.o.incrementCounter(smo.ctx, metricSteps, labels)
	smo.o.recordValue(smo.ctx, metricEventsCommitted, float64(eventCount), labels)
}

// recordError records all metrics for a failed step.
func (smo *stepMetricsObserver) recordError(errorType string) {
	labels := map[string]string{
		labelAggregateType: smo.aggregateType,
		labelStatus:        statusError,
		labelErrorType:     errorType,
	}

	smo.o.recordDuration(smo.ctx, metricStepDuration, time.Since(smo.start), labels)
	smo.o.incrementCounter(smo.ctx, metricSteps, labels)

	if errorType == errorTypeReactorFailed {
		smo.o.incrementCounter(smo.ctx, metricReactorErrors, map[string]string{labelAggregateType: smo.aggregateType})
	}
}

// recordDuration records a duration with context if the collector supports it.
func (o *observability) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if o.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := o.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	o.metricsCollector.RecordDuration(metric, duration, labels)
}

// incrementCounter increments a counter with context if the collector supports it.
func (o *observability) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if o.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := o.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	o.metricsCollector.IncrementCounter(metric, labels)
}

// recordValue records a value with context if the collector supports it.
func (o *observability) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if o.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := o.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	o.metricsCollector.RecordValue(metric, value, labels)
}

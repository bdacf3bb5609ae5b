package postgresstore

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

const (
	metricOperationDuration = "postgresstore_operation_duration_seconds"
	metricOperationsTotal   = "postgresstore_operations_total"
	metricEventsCommitted   = "postgresstore_events_committed"
	metricConflictsTotal    = "postgresstore_concurrency_conflicts_total"
	metricErrorsTotal       = "postgresstore_errors_total"

	labelOperation = "operation"
	labelStatus    = "status"
	labelErrorType = "error_type"

	operationLoad       = "load"
	operationCommit     = "commit"
	operationLoadView   = "load_view"
	operationUpdateView = "update_view"

	spanPrefix          = "postgresstore."
	spanAttrAggregateID = "aggregate_id"
	spanAttrViewID      = "view_id"
	spanAttrEventCount  = "event_count"
	spanAttrErrorType   = "error_type"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeConcurrencyConflict = "concurrency_conflict"
	errorTypeCanceled            = "context_canceled"
	errorTypeDeadlineExceeded    = "context_deadline_exceeded"
	errorTypeDatabase            = "database_error"
)

// observer bundles the optional logging, metrics and tracing collaborators.
type observer struct {
	logger           cqrs.Logger
	contextualLogger cqrs.ContextualLogger
	metricsCollector cqrs.MetricsCollector
	tracingCollector cqrs.TracingCollector
}

// logDebug logs development information to both loggers if configured.
func (o observer) logDebug(ctx context.Context, msg string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}

	if o.contextualLogger != nil {
		o.contextualLogger.DebugContext(ctx, msg, args...)
	}
}

// logOperation logs operational information to both loggers if configured.
func (o observer) logOperation(ctx context.Context, msg string, args ...any) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}

	if o.contextualLogger != nil {
		o.contextualLogger.InfoContext(ctx, msg, args...)
	}
}

// logWarn logs non-critical issues to both loggers if configured.
func (o observer) logWarn(ctx context.Context, msg string, args ...any) {
	if o.logger != nil {
		o.logger.Warn(msg, args...)
	}

	if o.contextualLogger != nil {
		o.contextualLogger.WarnContext(ctx, msg, args...)
	}
}

// logError logs error information to both loggers if configured.
func (o observer) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if o.logger != nil {
		o.logger.Error(msg, allArgs...)
	}

	if o.contextualLogger != nil {
		o.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
}

// operationObserver tracks span and metrics of one database operation.
type operationObserver struct {
	o         observer
	ctx       context.Context
	operation string
	span      cqrs.SpanContext
	start     time.Time
}

// startOperation starts the span of the operation if tracing is configured.
func (o observer) startOperation(ctx context.Context, operation string, attrs map[string]string) (*operationObserver, context.Context) {
	op := &operationObserver{o: o, ctx: ctx, operation: operation, start: time.Now()}

	if o.tracingCollector != nil {
		spanCtx, span := o.tracingCollector.StartSpan(ctx, spanPrefix+operation, attrs)
		op.ctx, op.span = spanCtx, span
	}

	return op, op.ctx
}

// finishSuccess records the duration of a successful operation and closes its span.
func (op *operationObserver) finishSuccess(eventCount int) {
	labels := map[string]string{labelOperation: op.operation, labelStatus: statusSuccess}
	op.o.recordDuration(op.ctx, metricOperationDuration, time.Since(op.start), labels)
	op.o.incrementCounter(op.ctx, metricOperationsTotal, labels)

	if op.operation == operationCommit {
		op.o.recordValue(op.ctx, metricEventsCommitted, float64(eventCount), map[string]string{labelOperation: op.operation})
	}

	if op.span != nil {
		op.span.SetStatus(statusSuccess)
		op.o.tracingCollector.FinishSpan(op.span, statusSuccess, map[string]string{spanAttrEventCount: strconv.Itoa(eventCount)})
	}
}

// finishError records the failure of an operation and closes its span.
func (op *operationObserver) finishError(err error) {
	errorType := classifyError(err)
	labels := map[string]string{labelOperation: op.operation, labelStatus: statusError, labelErrorType: errorType}
	op.o.recordDuration(op.ctx, metricOperationDuration, time.Since(op.start), labels)
	op.o.incrementCounter(op.ctx, metricOperationsTotal, labels)

	if errorType == errorTypeConcurrencyConflict {
		op.o.incrementCounter(op.ctx, metricConflictsTotal, map[string]string{labelOperation: op.operation})
	} else {
		op.o.incrementCounter(op.ctx, metricErrorsTotal, map[string]string{labelOperation: op.operation, labelErrorType: errorType})
	}

	if op.span != nil {
		op.span.SetStatus(statusError)
		op.span.AddAttribute(spanAttrErrorType, errorType)
		op.o.tracingCollector.FinishSpan(op.span, statusError, map[string]string{spanAttrErrorType: errorType})
	}
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, cqrs.ErrConcurrencyConflict), errors.Is(err, cqrs.ErrViewVersionConflict):
		return errorTypeConcurrencyConflict
	case errors.Is(err, context.Canceled):
		return errorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeDeadlineExceeded
	default:
		return errorTypeDatabase
	}
}

// recordDuration records a duration with context if the collector supports it.
func (o observer) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if o.metricsCollector == nil {
		return
	}

	if contextual, ok := o.metricsCollector.(cqrs.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	o.metricsCollector.RecordDuration(metric, duration, labels)
}

// incrementCounter increments a counter with context if the collector supports it.
func (o observer) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if o.metricsCollector == nil {
		return
	}

	if contextual, ok := o.metricsCollector.(cqrs.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	o.metricsCollector.IncrementCounter(metric, labels)
}

// recordValue records a value with context if the collector supports it.
func (o observer) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if o.metricsCollector == nil {
		return
	}

	if contextual, ok := o.metricsCollector.(cqrs.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	o.metricsCollector.RecordValue(metric, value, labels)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

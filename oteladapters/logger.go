package oteladapters

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

// SlogBridgeLogger logs through the OpenTelemetry slog bridge, records carry the trace and span
// of the context they are logged with.
type SlogBridgeLogger struct {
	logger *slog.Logger
}

// NewSlogBridgeLogger creates a logger on the global OpenTelemetry LoggerProvider.
func NewSlogBridgeLogger(name string) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: otelslog.NewLogger(name)}
}

// NewSlogBridgeLoggerWithHandler creates a logger on the handler, without trace correlation.
func NewSlogBridgeLoggerWithHandler(handler slog.Handler) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: slog.New(handler)}
}

func (l *SlogBridgeLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *SlogBridgeLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogBridgeLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogBridgeLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *SlogBridgeLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

var (
	_ cqrs.Logger           = (*SlogBridgeLogger)(nil)
	_ cqrs.ContextualLogger = (*SlogBridgeLogger)(nil)
)

// OTelLogger emits records through the OpenTelemetry logs API directly.
// Key-value args become typed record attributes.
type OTelLogger struct {
	logger log.Logger
}

// NewOTelLogger creates a contextual logger on the OpenTelemetry logger.
func NewOTelLogger(logger log.Logger) *OTelLogger {
	return &OTelLogger{logger: logger}
}

func (l *OTelLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityDebug, msg, args)
}

func (l *OTelLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityInfo, msg, args)
}

func (l *OTelLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityWarn, msg, args)
}

func (l *OTelLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityError, msg, args)
}

func (l *OTelLogger) emit(ctx context.Context, severity log.Severity, msg string, args []any) {
	record := log.Record{}
	record.SetTimestamp(time.Now())
	record.SetSeverity(severity)
	record.SetSeverityText(severity.String())
	record.SetBody(log.StringValue(msg))

	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}

		record.AddAttributes(keyValue(key, args[i+1]))
	}

	l.logger.Emit(ctx, record)
}

// keyValue maps the value kinds the cqrs packages log to typed attributes, anything else is rendered by slog.
func keyValue(key string, value any) log.KeyValue {
	switch v := value.(type) {
	case string:
		return log.String(key, v)
	case int:
		return log.Int(key, v)
	case int64:
		return log.Int64(key, v)
	case uint:
		return log.Int64(key, int64(v))
	case float64:
		return log.Float64(key, v)
	case bool:
		return log.Bool(key, v)
	case error:
		return log.String(key, v.Error())
	default:
		return log.String(key, slog.AnyValue(v).String())
	}
}

var _ cqrs.ContextualLogger = (*OTelLogger)(nil)

package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

// TracingCollector starts an OpenTelemetry span for every traced operation, e.g. one cqrs.step span per command.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector on the tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan implements cqrs.TracingCollector.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, cqrs.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan implements cqrs.TracingCollector. Span contexts of other collectors are ignored.
func (t *TracingCollector) FinishSpan(spanCtx cqrs.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(attributes(attrs)...)
	otelSpanCtx.SetStatus(status)
	otelSpanCtx.span.End()
}

var _ cqrs.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext wraps an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus maps "success" to codes.Ok and "error" to codes.Error, other values become a status attribute.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case "success":
		s.span.SetStatus(codes.Ok, "")
	case "error":
		s.span.SetStatus(codes.Error, "operation failed")
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

// AddAttribute implements cqrs.SpanContext.
func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ cqrs.SpanContext = (*OTelSpanContext)(nil)

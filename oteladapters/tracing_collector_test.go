package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
	. "github.com/AntonStoeckl/cqrs-es-go/internal/testdoubles" //nolint:revive
	"github.com/AntonStoeckl/cqrs-es-go/memstore"
	"github.com/AntonStoeckl/cqrs-es-go/oteladapters"
)

func newTracingCollector() (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("test")), exporter
}

func spanAttribute(span tracetest.SpanStub, key string) (string, bool) {
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			return attr.Value.AsString(), true
		}
	}

	return "", false
}

func Test_TracingCollector_ShouldRecordStartAndFinishAttributes(t *testing.T) {
	// setup
	collector, exporter := newTracingCollector()

	// act
	_, spanCtx := collector.StartSpan(context.Background(), "cqrs.step", map[string]string{"aggregate_id": "counter-1"})
	spanCtx.AddAttribute("phase", "commit")
	collector.FinishSpan(spanCtx, "success", map[string]string{"event_count": "2"})

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "cqrs.step", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)

	for key, expected := range map[string]string{"aggregate_id": "counter-1", "phase": "commit", "event_count": "2"} {
		value, found := spanAttribute(spans[0], key)
		assert.True(t, found, key)
		assert.Equal(t, expected, value, key)
	}
}

func Test_TracingCollector_ShouldMapStatuses(t *testing.T) {
	testCases := []struct {
		status       string
		expectedCode codes.Code
		statusAttr   bool
	}{
		{status: "success", expectedCode: codes.Ok},
		{status: "error", expectedCode: codes.Error},
		{status: "skipped", expectedCode: codes.Unset, statusAttr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			collector, exporter := newTracingCollector()

			_, spanCtx := collector.StartSpan(context.Background(), "op", nil)
			collector.FinishSpan(spanCtx, tc.status, nil)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.expectedCode, spans[0].Status.Code)

			value, found := spanAttribute(spans[0], "status")
			assert.Equal(t, tc.statusAttr, found)
			if tc.statusAttr {
				assert.Equal(t, tc.status, value)
			}
		})
	}
}

func Test_TracingCollector_ShouldIgnoreForeignSpanContexts(t *testing.T) {
	collector, exporter := newTracingCollector()

	collector.FinishSpan(&SpySpanContext{}, "success", nil)

	assert.Empty(t, exporter.GetSpans())
}

func Test_TracingCollector_ShouldTraceFrameworkSteps(t *testing.T) {
	// setup
	collector, exporter := newTracingCollector()
	store := memstore.NewMemStore[Counter, CounterEvent]()

	framework, err := cqrs.NewFramework[Counter, CounterCommand, CounterEvent, *CounterServices, *memstore.AggregateContext[Counter]](
		store, &CounterServices{}, nil, nil, cqrs.WithTracing(collector),
	)
	require.NoError(t, err)

	// act
	require.NoError(t, framework.Execute(context.Background(), "counter-1", Increment{By: 1}))
	assert.Error(t, framework.Execute(context.Background(), "counter-1", Increment{By: 0}))

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "cqrs.step", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Contains(t, spans[1].Attributes, attribute.String("error_type", "command_rejected"))
}

package testdoubles

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

// SpySpanContext implements cqrs.SpanContext for testing.
type SpySpanContext struct {
	status     string
	attributes map[string]string
	mu         sync.Mutex
}

// SetStatus implements cqrs.SpanContext.
func (c *SpySpanContext) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// AddAttribute implements cqrs.SpanContext.
func (c *SpySpanContext) AddAttribute(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attributes == nil {
		c.attributes = make(map[string]string)
	}

	c.attributes[key] = value
}

// GetStatus returns the current status of the span.
func (c *SpySpanContext) GetStatus() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

// GetAttributes returns a copy of all attributes added to the span.
func (c *SpySpanContext) GetAttributes() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return maps.Clone(c.attributes)
}

// SpySpanRecord represents a recorded span.
type SpySpanRecord struct {
	Name            string
	StartAttributes map[string]string
	Status          string
	EndAttributes   map[string]string
	SpanContext     *SpySpanContext
}

// TracingCollectorSpy is a cqrs.TracingCollector implementation that captures spans for testing.
type TracingCollectorSpy struct {
	spanRecords []SpySpanRecord
	mu          sync.Mutex
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

// StartSpan implements cqrs.TracingCollector.
func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, cqrs.SpanContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spanCtx := &SpySpanContext{}
	s.spanRecords = append(s.spanRecords, SpySpanRecord{
		Name:            name,
		StartAttributes: maps.Clone(attrs),
		SpanContext:     spanCtx,
	})

	return ctx, spanCtx
}

// FinishSpan implements cqrs.TracingCollector.
func (s *TracingCollectorSpy) FinishSpan(spanCtx cqrs.SpanContext, status string, attrs map[string]string) {
	spySpanCtx, ok := spanCtx.(*SpySpanContext)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.spanRecords {
		if s.spanRecords[i].SpanContext == spySpanCtx {
			s.spanRecords[i].Status = status
			s.spanRecords[i].EndAttributes = maps.Clone(attrs)

			return
		}
	}
}

// GetSpanRecords returns a copy of all captured spans.
func (s *TracingCollectorSpy) GetSpanRecords() []SpySpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.spanRecords)
}

package cqrstest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

// Trace records the dispatch order of recording queries and reactors.
// Its text form is stable and meant for golden files.
type Trace struct {
	mu    sync.Mutex
	lines []string
}

// NewTrace creates an empty Trace.
func NewTrace() *Trace {
	return &Trace{}
}

func (t *Trace) record(kind string, name string, aggregateID string, sequences []uint, eventTypes []string) {
	if t == nil {
		return
	}

	events := make([]string, 0, len(eventTypes))
	for i, eventType := range eventTypes {
		events = append(events, fmt.Sprintf("%d:%s", sequences[i], eventType))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.lines = append(t.lines, fmt.Sprintf("%s %s %s [%s]", kind, name, aggregateID, strings.Join(events, " ")))
}

// Lines returns the recorded lines in dispatch order.
func (t *Trace) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return slices.Clone(t.lines)
}

// Bytes returns the recorded lines, one per line, without a trailing newline.
func (t *Trace) Bytes() []byte {
	return []byte(strings.Join(t.Lines(), "\n"))
}

func describe[E cqrs.Event](events []cqrs.EventEnvelope[E]) ([]uint, []string) {
	sequences := make([]uint, 0, len(events))
	eventTypes := make([]string, 0, len(events))

	for _, event := range events {
		sequences = append(sequences, event.Sequence)
		eventTypes = append(eventTypes, event.Payload.EventType())
	}

	return sequences, eventTypes
}

// RecordingQuery is a Query that keeps every dispatched batch.
type RecordingQuery[E cqrs.Event] struct {
	name    string
	trace   *Trace
	mu      sync.Mutex
	batches [][]cqrs.EventEnvelope[E]
}

// NewRecordingQuery creates a RecordingQuery that also writes to trace, which may be nil.
func NewRecordingQuery[E cqrs.Event](name string, trace *Trace) *RecordingQuery[E] {
	return &RecordingQuery[E]{name: name, trace: trace}
}

// Dispatch implements cqrs.Query.
func (q *RecordingQuery[E]) Dispatch(_ context.Context, aggregateID string, events []cqrs.EventEnvelope[E]) {
	q.mu.Lock()
	q.batches = append(q.batches, slices.Clone(events))
	q.mu.Unlock()

	sequences, eventTypes := describe(events)
	q.trace.record("query", q.name, aggregateID, sequences, eventTypes)
}

// Name returns the name the query was created with.
func (q *RecordingQuery[E]) Name() string {
	return q.name
}

// Batches returns the dispatched batches in order.
func (q *RecordingQuery[E]) Batches() [][]cqrs.EventEnvelope[E] {
	q.mu.Lock()
	defer q.mu.Unlock()

	return slices.Clone(q.batches)
}

// Received returns the payloads of all dispatched events in order.
func (q *RecordingQuery[E]) Received() []E {
	var received []E

	for _, batch := range q.Batches() {
		received = append(received, cqrs.Payloads(batch)...)
	}

	return received
}

// RecordingReactor is a Reactor that keeps every batch it reacted to and answers
// with fixed follow-up events or a fixed error.
type RecordingReactor[A any, E cqrs.Event, S any, AC cqrs.AggregateContext[A]] struct {
	name      string
	trace     *Trace
	followUps []E
	err       error
	mu        sync.Mutex
	batches   [][]cqrs.EventEnvelope[E]
	contexts  []AC
}

// NewRecordingReactor creates a RecordingReactor that emits the follow-up events on every call.
func NewRecordingReactor[A any, E cqrs.Event, S any, AC cqrs.AggregateContext[A]](
	name string,
	trace *Trace,
	followUps ...E,
) *RecordingReactor[A, E, S, AC] {

	return &RecordingReactor[A, E, S, AC]{name: name, trace: trace, followUps: followUps}
}

// NewFailingReactor creates a RecordingReactor that fails with err on every call.
func NewFailingReactor[A any, E cqrs.Event, S any, AC cqrs.AggregateContext[A]](
	name string,
	trace *Trace,
	err error,
) *RecordingReactor[A, E, S, AC] {

	return &RecordingReactor[A, E, S, AC]{name: name, trace: trace, err: err}
}

// React implements cqrs.Reactor.
func (r *RecordingReactor[A, E, S, AC]) React(
	_ context.Context,
	aggregateContext AC,
	aggregateID string,
	_ S,
	events []cqrs.EventEnvelope[E],
) ([]E, error) {

	r.mu.Lock()
	r.batches = append(r.batches, slices.Clone(events))
	r.contexts = append(r.contexts, aggregateContext)
	r.mu.Unlock()

	sequences, eventTypes := describe(events)
	r.trace.record("reactor", r.name, aggregateID, sequences, eventTypes)

	if r.err != nil {
		return nil, r.err
	}

	return slices.Clone(r.followUps), nil
}

// Name returns the name the reactor was created with.
func (r *RecordingReactor[A, E, S, AC]) Name() string {
	return r.name
}

// Batches returns the batches the reactor reacted to, in order.
func (r *RecordingReactor[A, E, S, AC]) Batches() [][]cqrs.EventEnvelope[E] {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.batches)
}

// Contexts returns the aggregate contexts the reactor was called with, in order.
func (r *RecordingReactor[A, E, S, AC]) Contexts() []AC {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.contexts)
}

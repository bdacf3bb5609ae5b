package cqrs

import (
	"context"
)

// Event is implemented by every event payload an Aggregate produces.
type Event interface {
	// EventType returns the string identifier for this event type.
	EventType() string

	// EventVersion returns the schema version of this event type, used for upcasting.
	EventVersion() string
}

// EventSourced is the part of an aggregate an EventStore needs to rebuild it from its history.
//
// Aggregates have value semantics: the zero value of A is the default (empty) aggregate
// and Apply returns the next state instead of mutating the receiver.
type EventSourced[A any, E Event] interface {
	AggregateType() string
	Apply(event E) A
}

// Aggregate is the unit of consistency.
//
// The type parameters stand for the aggregate itself (A), its commands (C),
// its events (E) and the services handle its command logic depends on (S).
// Handle must not mutate the aggregate, the resulting events are applied by the EventStore.
type Aggregate[A any, C any, E Event, S any] interface {
	EventSourced[A, E]
	Handle(ctx context.Context, command C, services S) ([]E, error)
}

// AggregateContext gives read-only access to an aggregate as it was last persisted.
type AggregateContext[A any] interface {
	AggregateID() string
	Aggregate() A
	CurrentSequence() uint
}

// EventStore commits and loads event histories of one aggregate type.
//
// The AC type parameter binds a store to its concrete AggregateContext type,
// so that Reactor(s) written for one storage backend cannot be used with another.
type EventStore[A any, E Event, AC AggregateContext[A]] interface {
	// LoadEvents returns the committed history of one aggregate instance in ascending sequence order.
	LoadEvents(ctx context.Context, aggregateID string) ([]EventEnvelope[E], error)

	// LoadAggregate rebuilds the aggregate from its history.
	LoadAggregate(ctx context.Context, aggregateID string) (AC, error)

	// Commit appends the events after aggregateContext.CurrentSequence().
	// It returns ErrConcurrencyConflict if the stream was appended to in the meantime.
	Commit(ctx context.Context, events []E, aggregateContext AC, metadata Metadata) ([]EventEnvelope[E], error)
}

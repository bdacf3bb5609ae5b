package cqrs

import (
	"context"
)

// Query receives the committed events of one aggregate instance and updates external state,
// e.g. a materialized view, a message bus, or a command on another aggregate.
//
// Events are dispatched immediately after being committed, in commit order.
// Query has no error channel: an implementation that cannot complete its update must handle
// the failure itself (log, retry, dead-letter), the pipeline neither observes nor retries it.
type Query[E Event] interface {
	Dispatch(ctx context.Context, aggregateID string, events []EventEnvelope[E])
}

// QueryFunc is an adapter to allow the use of ordinary functions as Query.
type QueryFunc[E Event] func(ctx context.Context, aggregateID string, events []EventEnvelope[E])

// Dispatch calls f(ctx, aggregateID, events).
func (f QueryFunc[E]) Dispatch(ctx context.Context, aggregateID string, events []EventEnvelope[E]) {
	f(ctx, aggregateID, events)
}

// View is a materialized read model, updated by folding events into it one at a time.
//
// Views are zero-value constructible and JSON serializable. Update must be a pure function
// of the current state and the event, and must ignore events it does not understand.
type View[E Event] interface {
	Update(event EventEnvelope[E])
}

// Reactor coordinates a multi-step business process (saga) by reacting to committed events
// and returning follow-up events, including compensations.
//
// The aggregate context is read-only and reflects the aggregate as last persisted.
// A returned error is an aggregate-level error and reaches the caller of the command exactly
// like a command handling error.
type Reactor[A any, E Event, S any, AC AggregateContext[A]] interface {
	React(ctx context.Context, aggregateContext AC, aggregateID string, services S, events []EventEnvelope[E]) ([]E, error)
}

// ReactorFunc is an adapter to allow the use of ordinary functions as Reactor.
type ReactorFunc[A any, E Event, S any, AC AggregateContext[A]] func(
	ctx context.Context,
	aggregateContext AC,
	aggregateID string,
	services S,
	events []EventEnvelope[E],
) ([]E, error)

// React calls f(ctx, aggregateContext, aggregateID, services, events).
func (f ReactorFunc[A, E, S, AC]) React(
	ctx context.Context,
	aggregateContext AC,
	aggregateID string,
	services S,
	events []EventEnvelope[E],
) ([]E, error) {

	return f(ctx, aggregateContext, aggregateID, services, events)
}

// ViewContext identifies a persisted view and the version it was loaded at.
type ViewContext struct {
	ViewID  string
	Version uint
}

// ViewRepository persists views with optimistic concurrency on the view version.
type ViewRepository[V any] interface {
	// Load returns the view and true, or the zero view and false if it does not exist.
	Load(ctx context.Context, viewID string) (V, bool, error)

	// LoadWithContext additionally returns the ViewContext needed for UpdateView.
	// For a missing view it returns the zero view and a ViewContext with Version 0.
	LoadWithContext(ctx context.Context, viewID string) (V, ViewContext, bool, error)

	// UpdateView stores the view if the persisted version still equals viewContext.Version,
	// otherwise it returns ErrViewVersionConflict.
	UpdateView(ctx context.Context, view V, viewContext ViewContext) error
}

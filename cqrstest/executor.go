package cqrstest

import (
	"context"
	"errors"
	"slices"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

// ErrSeedingHistoryFailed is joined with the cause when the given events cannot be committed.
var ErrSeedingHistoryFailed = errors.New("cqrstest: seeding history failed")

// AggregateTestExecutor owns a finalized harness configuration and the aggregate history.
// The history is committed to the store, without dispatching it, right before the first command runs.
type AggregateTestExecutor[A cqrs.Aggregate[A, C, E, S], C any, E cqrs.Event, S any, AC cqrs.AggregateContext[A]] struct {
	services         S
	queries          []cqrs.Query[E]
	reactors         []cqrs.Reactor[A, E, S, AC]
	aggregateContext AC
	store            cqrs.EventStore[A, E, AC]
	options          []cqrs.Option
	history          []E
	seeded           bool
	seedErr          error
}

// And appends further events to the history. It has no effect once a command ran.
func (e *AggregateTestExecutor[A, C, E, S, AC]) And(events ...E) *AggregateTestExecutor[A, C, E, S, AC] {
	e.history = append(e.history, events...)

	return e
}

// When handles the command and returns the validator for the step.
func (e *AggregateTestExecutor[A, C, E, S, AC]) When(command C) *ResultValidator[E] {
	return e.WhenWithMetadata(context.Background(), command, nil)
}

// WhenContext is When with a caller supplied context.
func (e *AggregateTestExecutor[A, C, E, S, AC]) WhenContext(ctx context.Context, command C) *ResultValidator[E] {
	return e.WhenWithMetadata(ctx, command, nil)
}

// WhenWithMetadata is When with a caller supplied context and metadata.
// Later calls run against the history plus the events of the earlier steps.
// If the history could not be seeded, every call reports ErrSeedingHistoryFailed.
func (e *AggregateTestExecutor[A, C, E, S, AC]) WhenWithMetadata(ctx context.Context, command C, metadata cqrs.Metadata) *ResultValidator[E] {
	if err := e.seed(ctx); err != nil {
		return &ResultValidator[E]{setupErr: err}
	}

	framework, err := cqrs.NewFramework[A, C](e.store, e.services, e.queries, e.reactors, e.options...)
	if err != nil {
		return &ResultValidator[E]{setupErr: err}
	}

	outcome, err := framework.Run(ctx, e.aggregateContext.AggregateID(), command, metadata)

	return &ResultValidator[E]{outcome: outcome, err: err}
}

func (e *AggregateTestExecutor[A, C, E, S, AC]) seed(ctx context.Context) error {
	if e.seeded {
		return e.seedErr
	}

	e.seeded = true

	if len(e.history) == 0 {
		return nil
	}

	if _, err := e.store.Commit(ctx, slices.Clone(e.history), e.aggregateContext, nil); err != nil {
		e.seedErr = errors.Join(ErrSeedingHistoryFailed, err)
	}

	return e.seedErr
}

// Services returns the services handle shared by the command handling and all reactors.
func (e *AggregateTestExecutor[A, C, E, S, AC]) Services() S {
	return e.services
}

// Queries returns a copy of the queries in dispatch order.
func (e *AggregateTestExecutor[A, C, E, S, AC]) Queries() []cqrs.Query[E] {
	return slices.Clone(e.queries)
}

// Reactors returns a copy of the reactors in invocation order.
func (e *AggregateTestExecutor[A, C, E, S, AC]) Reactors() []cqrs.Reactor[A, E, S, AC] {
	return slices.Clone(e.reactors)
}

// History returns a copy of the given events.
func (e *AggregateTestExecutor[A, C, E, S, AC]) History() []E {
	return slices.Clone(e.history)
}

// AggregateID returns the id of the aggregate instance the scenario runs against.
func (e *AggregateTestExecutor[A, C, E, S, AC]) AggregateID() string {
	return e.aggregateContext.AggregateID()
}

// Store returns the store the scenario runs against.
func (e *AggregateTestExecutor[A, C, E, S, AC]) Store() cqrs.EventStore[A, E, AC] {
	return e.store
}

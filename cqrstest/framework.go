package cqrstest

import (
	"fmt"
	"slices"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
	"github.com/AntonStoeckl/cqrs-es-go/memstore"
)

// DefaultAggregateID is the aggregate id scenarios run against when no aggregate context was bound.
const DefaultAggregateID = "aggregate-under-test"

const panicMsgReactorsBeforeStore = "reactors must be added after context and store defined"

// GenericTestFramework is the harness configuration for aggregate A with commands C, events E,
// services S and the aggregate context AC of the bound store.
//
// The zero value is not usable, start with With.
type GenericTestFramework[A cqrs.Aggregate[A, C, E, S], C any, E cqrs.Event, S any, AC cqrs.AggregateContext[A]] struct {
	services         S
	queries          []cqrs.Query[E]
	reactors         []cqrs.Reactor[A, E, S, AC]
	aggregateContext AC
	store            cqrs.EventStore[A, E, AC]
	storeBound       bool
	options          []cqrs.Option
}

// TestFramework is a harness on the default in-memory store.
type TestFramework[A cqrs.Aggregate[A, C, E, S], C any, E cqrs.Event, S any] = GenericTestFramework[A, C, E, S, *memstore.AggregateContext[A]]

// With starts a harness with the services handle, no queries, no reactors and no bound store.
func With[A cqrs.Aggregate[A, C, E, S], C any, E cqrs.Event, S any](services S) TestFramework[A, C, E, S] {
	return TestFramework[A, C, E, S]{services: services}
}

// UsingMemStore binds the in-memory store. Every Given creates its own store and a context
// for DefaultAggregateID, so scenarios built from one harness never share a stream.
// It panics if reactors were already added.
func (f GenericTestFramework[A, C, E, S, AC]) UsingMemStore() TestFramework[A, C, E, S] {
	if len(f.reactors) > 0 {
		panic(panicMsgReactorsBeforeStore)
	}

	return TestFramework[A, C, E, S]{
		services:   f.services,
		queries:    slices.Clone(f.queries),
		storeBound: true,
		options:    slices.Clone(f.options),
	}
}

// UsingContextAndStore binds the aggregate context and the store, fixing the context type of all
// reactors added later. The scenario runs against the aggregate id of aggregateContext.
// Services and queries carry over unchanged. It panics if reactors were already added.
func UsingContextAndStore[A cqrs.Aggregate[A, C, E, S], C any, E cqrs.Event, S any, AC, NAC cqrs.AggregateContext[A]](
	f GenericTestFramework[A, C, E, S, AC],
	aggregateContext NAC,
	store cqrs.EventStore[A, E, NAC],
) GenericTestFramework[A, C, E, S, NAC] {

	if len(f.reactors) > 0 {
		panic(panicMsgReactorsBeforeStore)
	}

	return GenericTestFramework[A, C, E, S, NAC]{
		services:         f.services,
		queries:          slices.Clone(f.queries),
		aggregateContext: aggregateContext,
		store:            store,
		storeBound:       true,
		options:          slices.Clone(f.options),
	}
}

// AndQuery appends the query, queries are dispatched in the order they were added.
func (f GenericTestFramework[A, C, E, S, AC]) AndQuery(query cqrs.Query[E]) GenericTestFramework[A, C, E, S, AC] {
	return f.AndQueries(query)
}

// AndQueries appends the queries in order.
func (f GenericTestFramework[A, C, E, S, AC]) AndQueries(queries ...cqrs.Query[E]) GenericTestFramework[A, C, E, S, AC] {
	f.queries = append(slices.Clone(f.queries), queries...)
	f.reactors = slices.Clone(f.reactors)
	f.options = slices.Clone(f.options)

	return f
}

// AndReactor appends the reactor, reactors run in the order they were added.
func (f GenericTestFramework[A, C, E, S, AC]) AndReactor(reactor cqrs.Reactor[A, E, S, AC]) GenericTestFramework[A, C, E, S, AC] {
	return f.AndReactors(reactor)
}

// AndReactors appends the reactors in order.
func (f GenericTestFramework[A, C, E, S, AC]) AndReactors(reactors ...cqrs.Reactor[A, E, S, AC]) GenericTestFramework[A, C, E, S, AC] {
	f.queries = slices.Clone(f.queries)
	f.reactors = append(slices.Clone(f.reactors), reactors...)
	f.options = slices.Clone(f.options)

	return f
}

// WithFrameworkOptions appends options for the pipeline the scenarios run on, e.g. a logger.
func (f GenericTestFramework[A, C, E, S, AC]) WithFrameworkOptions(options ...cqrs.Option) GenericTestFramework[A, C, E, S, AC] {
	f.queries = slices.Clone(f.queries)
	f.reactors = slices.Clone(f.reactors)
	f.options = append(slices.Clone(f.options), options...)

	return f
}

// Services returns the services handle.
func (f GenericTestFramework[A, C, E, S, AC]) Services() S {
	return f.services
}

// Queries returns a copy of the queries in dispatch order.
func (f GenericTestFramework[A, C, E, S, AC]) Queries() []cqrs.Query[E] {
	return slices.Clone(f.queries)
}

// Reactors returns a copy of the reactors in invocation order.
func (f GenericTestFramework[A, C, E, S, AC]) Reactors() []cqrs.Reactor[A, E, S, AC] {
	return slices.Clone(f.reactors)
}

// StoreBound reports whether a store was bound explicitly.
func (f GenericTestFramework[A, C, E, S, AC]) StoreBound() bool {
	return f.storeBound
}

// GivenNoPreviousEvents creates an executor for an aggregate without history.
func (f GenericTestFramework[A, C, E, S, AC]) GivenNoPreviousEvents() *AggregateTestExecutor[A, C, E, S, AC] {
	return f.Given()
}

// Given creates an executor whose aggregate history is exactly the events, in order.
func (f GenericTestFramework[A, C, E, S, AC]) Given(events ...E) *AggregateTestExecutor[A, C, E, S, AC] {
	aggregateContext, store := f.aggregateContext, f.store

	if store == nil {
		aggregateContext, store = defaultBinding[A, C, E, S, AC]()
	}

	return &AggregateTestExecutor[A, C, E, S, AC]{
		services:         f.services,
		queries:          slices.Clone(f.queries),
		reactors:         slices.Clone(f.reactors),
		aggregateContext: aggregateContext,
		store:            store,
		options:          slices.Clone(f.options),
		history:          slices.Clone(events),
	}
}

// defaultBinding creates a fresh in-memory store for harnesses without a store of their own.
// Those are started by With or bound by UsingMemStore, so AC is always the in-memory context.
func defaultBinding[A cqrs.Aggregate[A, C, E, S], C any, E cqrs.Event, S any, AC cqrs.AggregateContext[A]]() (AC, cqrs.EventStore[A, E, AC]) {
	aggregateContext, okContext := any(memstore.NewAggregateContext[A](DefaultAggregateID)).(AC)
	store, okStore := any(memstore.NewMemStore[A, E]()).(cqrs.EventStore[A, E, AC])

	if !okContext || !okStore {
		var zero AC
		panic(fmt.Sprintf("cqrstest: no store bound for aggregate context type %T", zero))
	}

	return aggregateContext, store
}

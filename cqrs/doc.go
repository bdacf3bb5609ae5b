// Package cqrs provides the contracts and the dispatch pipeline of an event-sourced CQRS toolkit.
//
// An Aggregate handles commands and produces events. The events are committed to an EventStore,
// wrapped in EventEnvelope(s), and then fanned out to:
//   - Query(s): update materialized views, publish messages, trigger commands elsewhere
//   - Reactor(s): coordinate multi-step business processes (sagas) and issue follow-up events
//
// The Framework runs one command as one step in a fixed order:
//
//	load aggregate -> handle command -> commit -> queries -> reactors -> commit follow-ups -> queries
//
// Reactor follow-up events are dispatched to the queries but never back to the reactors.
//
// Common usage pattern:
//
//	framework, err := cqrs.NewFramework(store, services, queries, reactors, cqrs.WithLogger(logger))
//	if err != nil {
//		// handle error
//	}
//
//	err = framework.Execute(ctx, aggregateID, command)
package cqrs

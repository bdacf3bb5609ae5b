package cqrs

import (
	"errors"
)

var (
	// ErrConcurrencyConflict is returned by EventStore.Commit when the stream was appended to concurrently.
	ErrConcurrencyConflict = errors.New("concurrency error, aggregate was modified concurrently")

	// ErrEmptyAggregateID is returned when a command is executed without an aggregate id.
	ErrEmptyAggregateID = errors.New("aggregate id must not be empty")

	// ErrNilEventStore is returned when a Framework is created without an EventStore.
	ErrNilEventStore = errors.New("event store must not be nil")

	// ErrLoadingAggregateFailed is joined with the cause when the aggregate context cannot be loaded.
	ErrLoadingAggregateFailed = errors.New("loading aggregate failed")

	// ErrCommittingEventsFailed is joined with the cause when committing events fails.
	ErrCommittingEventsFailed = errors.New("committing events failed")

	// ErrViewVersionConflict is returned by ViewRepository.UpdateView when the view was updated concurrently.
	ErrViewVersionConflict = errors.New("view version conflict, view was updated concurrently")

	// ErrEmptyViewID is returned when a view is loaded or updated without a view id.
	ErrEmptyViewID = errors.New("view id must not be empty")

	// ErrSerializingViewFailed is joined with the cause when a view cannot be serialized or deserialized.
	ErrSerializingViewFailed = errors.New("serializing view failed")
)

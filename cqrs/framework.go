package cqrs

import (
	"context"
	"errors"
	"slices"
)

// Outcome is the result of one successful step: the committed command events
// and the committed follow-up events emitted by the reactors.
type Outcome[E Event] struct {
	Committed []EventEnvelope[E]
	FollowUps []EventEnvelope[E]
}

// Framework runs commands against one aggregate type and dispatches the committed events
// to the registered queries and reactors.
//
// Within one step the order is fixed:
//
//  1. load the aggregate context and handle the command,
//  2. commit the resulting events and dispatch them to every query in registration order,
//  3. reload the aggregate context and pass the same events to every reactor in registration order,
//  4. commit the follow-up events of all reactors as one batch and dispatch it to every query.
//
// Follow-up events are not passed to the reactors again.
// The first reactor error ends the step and is returned unchanged, follow-ups are not committed.
type Framework[A Aggregate[A, C, E, S], C any, E Event, S any, AC AggregateContext[A]] struct {
	store    EventStore[A, E, AC]
	services S
	queries  []Query[E]
	reactors []Reactor[A, E, S, AC]
	observability
}

// NewFramework creates a Framework for the store, the services and the queries and reactors.
func NewFramework[A Aggregate[A, C, E, S], C any, E Event, S any, AC AggregateContext[A]](
	store EventStore[A, E, AC],
	services S,
	queries []Query[E],
	reactors []Reactor[A, E, S, AC],
	options ...Option,
) (*Framework[A, C, E, S, AC], error) {

	if store == nil {
		return nil, ErrNilEventStore
	}

	framework := &Framework[A, C, E, S, AC]{
		store:    store,
		services: services,
		queries:  slices.Clone(queries),
		reactors: slices.Clone(reactors),
	}

	for _, option := range options {
		if err := option(&framework.observability); err != nil {
			return nil, err
		}
	}

	return framework, nil
}

// Execute handles the command for the aggregate instance and dispatches the resulting events.
func (f *Framework[A, C, E, S, AC]) Execute(ctx context.Context, aggregateID string, command C) error {
	_, err := f.Run(ctx, aggregateID, command, nil)

	return err
}

// ExecuteWithMetadata is Execute with caller supplied metadata, e.g. a correlation id.
func (f *Framework[A, C, E, S, AC]) ExecuteWithMetadata(
	ctx context.Context,
	aggregateID string,
	command C,
	metadata Metadata,
) error {

	_, err := f.Run(ctx, aggregateID, command, metadata)

	return err
}

// Run executes one step and returns the committed events and follow-up events.
func (f *Framework[A, C, E, S, AC]) Run(
	ctx context.Context,
	aggregateID string,
	command C,
	metadata Metadata,
) (Outcome[E], error) {

	var zero A
	aggregateType := zero.AggregateType()

	tracer, ctx := f.startStepTracing(ctx, aggregateType, aggregateID)
	metrics := f.startStepMetrics(ctx, aggregateType)

	outcome, phase, err := f.run(ctx, aggregateID, command, metadata)
	if err != nil {
		errorType := classifyError(phase, err)
		tracer.finishError(errorType)
		metrics.recordError(errorType)

		if errorType == errorTypeConcurrencyConflict {
			f.logOperation(ctx, logMsgConcurrencyConflict, logAttrAggregateType, aggregateType, logAttrAggregateID, aggregateID)
		}

		if phase != errorTypeCommandRejected {
			f.logError(ctx, logMsgStepFailed, err,
				logAttrErrorType, errorType,
				logAttrAggregateType, aggregateType,
				logAttrAggregateID, aggregateID,
			)
		}

		return Outcome[E]{}, err
	}

	eventCount := len(outcome.Committed) + len(outcome.FollowUps)
	tracer.finishSuccess(eventCount)
	metrics.recordSuccess(eventCount)
	f.logOperation(ctx, logMsgStepCompleted,
		logAttrAggregateType, aggregateType,
		logAttrAggregateID, aggregateID,
		logAttrEventCount, len(outcome.Committed),
		logAttrFollowUpCount, len(outcome.FollowUps),
		logAttrDurationMS, toMilliseconds(metrics.elapsed()),
	)

	return outcome, nil
}

// run executes the step and reports the phase that failed.
func (f *Framework[A, C, E, S, AC]) run(
	ctx context.Context,
	aggregateID string,
	command C,
	metadata Metadata,
) (Outcome[E], string, error) {

	if aggregateID == "" {
		return Outcome[E]{}, errorTypeInvalidInput, ErrEmptyAggregateID
	}

	if err := ctx.Err(); err != nil {
		return Outcome[E]{}, errorTypeInvalidInput, err
	}

	aggregateContext, err := f.store.LoadAggregate(ctx, aggregateID)
	if err != nil {
		return Outcome[E]{}, errorTypeLoadFailed, errors.Join(ErrLoadingAggregateFailed, err)
	}

	events, err := aggregateContext.Aggregate().Handle(ctx, command, f.services)
	if err != nil {
		return Outcome[E]{}, errorTypeCommandRejected, err
	}

	if len(events) == 0 {
		f.logDebug(ctx, logMsgNoEvents, logAttrAggregateID, aggregateID)
		return Outcome[E]{}, "", nil
	}

	batchMetadata := WithCorrelation(metadata)
	if batchMetadata[MetadataCausationID] == "" {
		batchMetadata = WithCausation(batchMetadata, batchMetadata[MetadataCorrelationID])
	}

	committed, err := f.store.Commit(ctx, events, aggregateContext, batchMetadata)
	if err != nil {
		return Outcome[E]{}, errorTypeCommitFailed, f.joinCommitError(err)
	}

	f.logDebug(ctx, logMsgEventsCommitted, logAttrAggregateID, aggregateID, logAttrEventCount, len(committed))
	f.dispatchToQueries(ctx, aggregateID, committed)

	outcome := Outcome[E]{Committed: committed}

	if len(f.reactors) == 0 {
		return outcome, "", nil
	}

	reloadedContext, err := f.store.LoadAggregate(ctx, aggregateID)
	if err != nil {
		return Outcome[E]{}, errorTypeLoadFailed, errors.Join(ErrLoadingAggregateFailed, err)
	}

	followUps, err := f.react(ctx, reloadedContext, aggregateID, committed)
	if err != nil {
		return Outcome[E]{}, errorTypeReactorFailed, err
	}

	if len(followUps) == 0 {
		return outcome, "", nil
	}

	followUpMetadata := WithCausation(batchMetadata, committed[len(committed)-1].Metadata[MetadataMessageID])

	committedFollowUps, err := f.store.Commit(ctx, followUps, reloadedContext, followUpMetadata)
	if err != nil {
		return Outcome[E]{}, errorTypeCommitFailed, f.joinCommitError(err)
	}

	f.logDebug(ctx, logMsgFollowUpsCommitted, logAttrAggregateID, aggregateID, logAttrEventCount, len(committedFollowUps))
	f.dispatchToQueries(ctx, aggregateID, committedFollowUps)
	outcome.FollowUps = committedFollowUps

	return outcome, "", nil
}

// dispatchToQueries passes the batch to every query in registration order.
func (f *Framework[A, C, E, S, AC]) dispatchToQueries(ctx context.Context, aggregateID string, events []EventEnvelope[E]) {
	for _, query := range f.queries {
		query.Dispatch(ctx, aggregateID, events)
	}
}

// react passes the batch to every reactor in registration order and concatenates their follow-ups.
func (f *Framework[A, C, E, S, AC]) react(
	ctx context.Context,
	aggregateContext AC,
	aggregateID string,
	events []EventEnvelope[E],
) ([]E, error) {

	var followUps []E

	for i, reactor := range f.reactors {
		emitted, err := reactor.React(ctx, aggregateContext, aggregateID, f.services, events)
		if err != nil {
			f.logError(ctx, logMsgReactorFailed, err, logAttrReactorIndex, i, logAttrAggregateID, aggregateID)
			return nil, err
		}

		followUps = append(followUps, emitted...)
	}

	return followUps, nil
}

func (f *Framework[A, C, E, S, AC]) joinCommitError(err error) error {
	if errors.Is(err, ErrConcurrencyConflict) {
		return err
	}

	return errors.Join(ErrCommittingEventsFailed, err)
}

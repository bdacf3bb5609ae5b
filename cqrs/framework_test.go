package cqrs_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
	. "github.com/AntonStoeckl/cqrs-es-go/internal/testdoubles" //nolint:revive
	"github.com/AntonStoeckl/cqrs-es-go/memstore"
)

type counterContext = *memstore.AggregateContext[Counter]
type counterStore = cqrs.EventStore[Counter, CounterEvent, counterContext]
type counterReactor = cqrs.ReactorFunc[Counter, CounterEvent, *CounterServices, counterContext]
type counterFramework = cqrs.Framework[Counter, CounterCommand, CounterEvent, *CounterServices, counterContext]

func newFramework(
	t *testing.T,
	store counterStore,
	queries []cqrs.Query[CounterEvent],
	reactors []cqrs.Reactor[Counter, CounterEvent, *CounterServices, counterContext],
	options ...cqrs.Option,
) *counterFramework {

	t.Helper()

	framework, err := cqrs.NewFramework[Counter, CounterCommand](store, &CounterServices{Name: "test"}, queries, reactors, options...)
	require.NoError(t, err)

	return framework
}

func recordingQuery(name string, log *[]string) cqrs.QueryFunc[CounterEvent] {
	return func(_ context.Context, aggregateID string, events []cqrs.EventEnvelope[CounterEvent]) {
		for _, event := range events {
			*log = append(*log, fmt.Sprintf("%s %s #%d %s", name, aggregateID, event.Sequence, event.Payload.EventType()))
		}
	}
}

func recordingReactor(name string, log *[]string, followUps ...CounterEvent) counterReactor {
	return func(
		_ context.Context,
		aggregateContext counterContext,
		aggregateID string,
		_ *CounterServices,
		events []cqrs.EventEnvelope[CounterEvent],
	) ([]CounterEvent, error) {

		for _, event := range events {
			*log = append(*log, fmt.Sprintf("%s %s #%d %s (seq %d)", name, aggregateID, event.Sequence, event.Payload.EventType(), aggregateContext.CurrentSequence()))
		}

		return followUps, nil
	}
}

func Test_NewFramework_ShouldRejectNilStore(t *testing.T) {
	// act
	framework, err := cqrs.NewFramework[Counter, CounterCommand, CounterEvent, *CounterServices, counterContext](
		nil, &CounterServices{}, nil, nil,
	)

	// assert
	assert.Nil(t, framework)
	assert.ErrorIs(t, err, cqrs.ErrNilEventStore)
}

func Test_Execute_ShouldRejectEmptyAggregateID(t *testing.T) {
	// arrange
	framework := newFramework(t, memstore.NewMemStore[Counter, CounterEvent](), nil, nil)

	// act
	err := framework.Execute(context.Background(), "", Increment{By: 1})

	// assert
	assert.ErrorIs(t, err, cqrs.ErrEmptyAggregateID)
}

func Test_Execute_ShouldHonourCanceledContext(t *testing.T) {
	// arrange
	framework := newFramework(t, memstore.NewMemStore[Counter, CounterEvent](), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	err := framework.Execute(ctx, "counter-1", Increment{By: 1})

	// assert
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Execute_ShouldReturnHandlingErrorUnchanged_AndCommitNothing(t *testing.T) {
	// arrange
	store := memstore.NewMemStore[Counter, CounterEvent]()
	var log []string
	framework := newFramework(t, store, []cqrs.Query[CounterEvent]{recordingQuery("Q1", &log)}, nil)

	// act
	err := framework.Execute(context.Background(), "counter-1", Increment{By: 0})

	// assert
	assert.Equal(t, ErrInvalidAmount, err)
	events, loadErr := store.LoadEvents(context.Background(), "counter-1")
	require.NoError(t, loadErr)
	assert.Empty(t, events)
	assert.Empty(t, log)
}

func Test_Execute_ShouldNotDispatch_WhenNoEventsAreProduced(t *testing.T) {
	// arrange
	var log []string
	framework := newFramework(t,
		memstore.NewMemStore[Counter, CounterEvent](),
		[]cqrs.Query[CounterEvent]{recordingQuery("Q1", &log)},
		[]cqrs.Reactor[Counter, CounterEvent, *CounterServices, counterContext]{recordingReactor("R1", &log)},
	)

	// act
	outcome, err := framework.Run(context.Background(), "counter-1", Noop{}, nil)

	// assert
	require.NoError(t, err)
	assert.Empty(t, outcome.Committed)
	assert.Empty(t, outcome.FollowUps)
	assert.Empty(t, log)
}

func Test_Run_ShouldDispatchToQueriesThenReactors_InRegistrationOrder(t *testing.T) {
	// arrange
	var log []string
	framework := newFramework(t,
		memstore.NewMemStore[Counter, CounterEvent](),
		[]cqrs.Query[CounterEvent]{recordingQuery("Q1", &log), recordingQuery("Q2", &log)},
		[]cqrs.Reactor[Counter, CounterEvent, *CounterServices, counterContext]{
			recordingReactor("R1", &log, Decremented{By: 1}),
			recordingReactor("R2", &log, Decremented{By: 2}),
		},
	)

	// act
	outcome, err := framework.Run(context.Background(), "counter-1", Increment{By: 5}, nil)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []CounterEvent{Incremented{By: 5}}, cqrs.Payloads(outcome.Committed))
	assert.Equal(t, []CounterEvent{Decremented{By: 1}, Decremented{By: 2}}, cqrs.Payloads(outcome.FollowUps))
	assert.Equal(t, []string{
		"Q1 counter-1 #1 Incremented",
		"Q2 counter-1 #1 Incremented",
		"R1 counter-1 #1 Incremented (seq 1)",
		"R2 counter-1 #1 Incremented (seq 1)",
		"Q1 counter-1 #2 Decremented",
		"Q1 counter-1 #3 Decremented",
		"Q2 counter-1 #2 Decremented",
		"Q2 counter-1 #3 Decremented",
	}, log)
}

func Test_Run_ShouldReturnFirstReactorErrorUnchanged_AndDiscardFollowUps(t *testing.T) {
	// arrange
	store := memstore.NewMemStore[Counter, CounterEvent]()
	reactorErr := errors.New("saga step failed")
	var log []string
	secondCalled := false

	framework := newFramework(t, store, nil,
		[]cqrs.Reactor[Counter, CounterEvent, *CounterServices, counterContext]{
			recordingReactor("R1", &log, Decremented{By: 1}),
			counterReactor(func(context.Context, counterContext, string, *CounterServices, []cqrs.EventEnvelope[CounterEvent]) ([]CounterEvent, error) {
				return nil, reactorErr
			}),
			counterReactor(func(context.Context, counterContext, string, *CounterServices, []cqrs.EventEnvelope[CounterEvent]) ([]CounterEvent, error) {
				secondCalled = true
				return nil, nil
			}),
		},
	)

	// act
	err := framework.Execute(context.Background(), "counter-1", Increment{By: 1})

	// assert
	assert.Equal(t, reactorErr, err)
	assert.False(t, secondCalled)

	events, loadErr := store.LoadEvents(context.Background(), "counter-1")
	require.NoError(t, loadErr)
	assert.Equal(t, []CounterEvent{Incremented{By: 1}}, cqrs.Payloads(events))
}

func Test_Run_ShouldStampCorrelationAndCausation(t *testing.T) {
	// arrange
	framework := newFramework(t, memstore.NewMemStore[Counter, CounterEvent](), nil,
		[]cqrs.Reactor[Counter, CounterEvent, *CounterServices, counterContext]{
			recordingReactor("R1", new([]string), Decremented{By: 1}),
		},
	)

	// act
	outcome, err := framework.Run(context.Background(), "counter-1", Increment{By: 1}, cqrs.Metadata{
		cqrs.MetadataCorrelationID: "corr-1",
		"tenant":                   "acme",
	})

	// assert
	require.NoError(t, err)
	require.Len(t, outcome.Committed, 1)
	require.Len(t, outcome.FollowUps, 1)

	command := outcome.Committed[0].Metadata
	followUp := outcome.FollowUps[0].Metadata

	assert.Equal(t, "corr-1", command[cqrs.MetadataCorrelationID])
	assert.Equal(t, "corr-1", command[cqrs.MetadataCausationID])
	assert.Equal(t, "acme", command["tenant"])
	assert.NotEmpty(t, command[cqrs.MetadataMessageID])

	assert.Equal(t, "corr-1", followUp[cqrs.MetadataCorrelationID])
	assert.Equal(t, command[cqrs.MetadataMessageID], followUp[cqrs.MetadataCausationID])
	assert.NotEqual(t, command[cqrs.MetadataMessageID], followUp[cqrs.MetadataMessageID])
}

type failingStore struct {
	counterStore
	loadErr   error
	commitErr error
}

func (s failingStore) LoadAggregate(ctx context.Context, aggregateID string) (counterContext, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}

	return s.counterStore.LoadAggregate(ctx, aggregateID)
}

func (s failingStore) Commit(
	ctx context.Context,
	events []CounterEvent,
	aggregateContext counterContext,
	metadata cqrs.Metadata,
) ([]cqrs.EventEnvelope[CounterEvent], error) {

	if s.commitErr != nil {
		return nil, s.commitErr
	}

	return s.counterStore.Commit(ctx, events, aggregateContext, metadata)
}

func Test_Run_ShouldJoinStoreErrors(t *testing.T) {
	cause := errors.New("connection reset")

	testCases := []struct {
		name     string
		store    failingStore
		sentinel error
	}{
		{
			name:     "load",
			store:    failingStore{counterStore: memstore.NewMemStore[Counter, CounterEvent](), loadErr: cause},
			sentinel: cqrs.ErrLoadingAggregateFailed,
		},
		{
			name:     "commit",
			store:    failingStore{counterStore: memstore.NewMemStore[Counter, CounterEvent](), commitErr: cause},
			sentinel: cqrs.ErrCommittingEventsFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			framework := newFramework(t, tc.store, nil, nil)

			// act
			err := framework.Execute(context.Background(), "counter-1", Increment{By: 1})

			// assert
			assert.ErrorIs(t, err, tc.sentinel)
			assert.ErrorIs(t, err, cause)
		})
	}
}

func Test_Run_ShouldKeepConcurrencyConflictVisible(t *testing.T) {
	// arrange
	store := failingStore{
		counterStore: memstore.NewMemStore[Counter, CounterEvent](),
		commitErr:    cqrs.ErrConcurrencyConflict,
	}
	logHandler := NewLogHandlerSpy(false)
	framework := newFramework(t, store, nil, nil, cqrs.WithLogger(slog.New(logHandler)))

	// act
	err := framework.Execute(context.Background(), "counter-1", Increment{By: 1})

	// assert
	assert.ErrorIs(t, err, cqrs.ErrConcurrencyConflict)
	assert.NotErrorIs(t, err, cqrs.ErrCommittingEventsFailed)
	assert.True(t, logHandler.HasInfoLogWithMessage("cqrs: concurrency conflict detected").
		WithAttr("aggregate_id", "counter-1").Assert())
}

func Test_Run_ShouldLogAndRecordMetricsAndTraces_ForSuccessfulStep(t *testing.T) {
	// arrange
	logHandler := NewLogHandlerSpy(false)
	metrics := NewMetricsCollectorSpy()
	tracing := NewTracingCollectorSpy()
	framework := newFramework(t, memstore.NewMemStore[Counter, CounterEvent](), nil, nil,
		cqrs.WithLogger(slog.New(logHandler)),
		cqrs.WithMetrics(metrics),
		cqrs.WithTracing(tracing),
	)

	// act
	err := framework.Execute(context.Background(), "counter-1", Increment{By: 1})

	// assert
	require.NoError(t, err)
	assert.True(t, logHandler.HasInfoLogWithMessage("cqrs: step completed").
		WithAttr("aggregate_type", "Counter").
		WithAttr("event_count", "1").
		WithDurationMS().
		Assert())
	assert.True(t, metrics.HasDurationRecord("cqrs_step_duration_seconds", map[string]string{"status": "success"}))
	assert.True(t, metrics.HasCounterRecord("cqrs_steps_total", map[string]string{"aggregate_type": "Counter", "status": "success"}))

	spans := tracing.GetSpanRecords()
	require.Len(t, spans, 1)
	assert.Equal(t, "cqrs.step", spans[0].Name)
	assert.Equal(t, "counter-1", spans[0].StartAttributes["aggregate_id"])
	assert.Equal(t, "success", spans[0].Status)
	assert.Equal(t, "1", spans[0].EndAttributes["event_count"])
}

func Test_Run_ShouldLogAndRecordMetricsAndTraces_ForFailingReactor(t *testing.T) {
	// arrange
	logHandler := NewLogHandlerSpy(false)
	metrics := NewMetricsCollectorSpy()
	tracing := NewTracingCollectorSpy()
	reactorErr := errors.New("saga step failed")
	framework := newFramework(t, memstore.NewMemStore[Counter, CounterEvent](), nil,
		[]cqrs.Reactor[Counter, CounterEvent, *CounterServices, counterContext]{
			counterReactor(func(context.Context, counterContext, string, *CounterServices, []cqrs.EventEnvelope[CounterEvent]) ([]CounterEvent, error) {
				return nil, reactorErr
			}),
		},
		cqrs.WithLogger(slog.New(logHandler)),
		cqrs.WithMetrics(metrics),
		cqrs.WithTracing(tracing),
	)

	// act
	err := framework.Execute(context.Background(), "counter-1", Increment{By: 1})

	// assert
	assert.Equal(t, reactorErr, err)
	assert.True(t, logHandler.HasErrorLogWithMessage("cqrs: reactor failed").
		WithAttr("reactor_index", "0").
		WithAttr("error", "saga step failed").
		Assert())
	assert.True(t, metrics.HasCounterRecord("cqrs_reactor_errors_total", map[string]string{"aggregate_type": "Counter"}))
	assert.True(t, metrics.HasCounterRecord("cqrs_steps_total", map[string]string{"status": "error", "error_type": "reactor_failed"}))

	spans := tracing.GetSpanRecords()
	require.Len(t, spans, 1)
	assert.Equal(t, "error", spans[0].Status)
	assert.Equal(t, "reactor_failed", spans[0].SpanContext.GetAttributes()["error_type"])
}

func Test_Run_ShouldNotLogRejectedCommandsAsFailures(t *testing.T) {
	// arrange
	logHandler := NewLogHandlerSpy(false)
	framework := newFramework(t, memstore.NewMemStore[Counter, CounterEvent](), nil, nil,
		cqrs.WithContextualLogger(slog.New(logHandler)),
	)

	// act
	err := framework.Execute(context.Background(), "counter-1", Increment{By: -1})

	// assert
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.False(t, logHandler.HasErrorLogWithMessage("cqrs: step failed").Assert())
}

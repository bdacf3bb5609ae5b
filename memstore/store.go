package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

const (
	logMsgEventsCommitted     = "memstore: events committed"
	logMsgConcurrencyConflict = "memstore: concurrency conflict detected"
	logAttrAggregateID        = "aggregate_id"
	logAttrExpectedSequence   = "expected_sequence"
	logAttrActualSequence     = "actual_sequence"
	logAttrEventCount         = "event_count"
)

// Option defines a functional option for configuring a MemStore.
type Option func(*settings)

type settings struct {
	logger cqrs.Logger
}

// WithLogger sets the logger for the MemStore. Commits are logged at debug level,
// concurrency conflicts at info level.
func WithLogger(logger cqrs.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// MemStore keeps one ordered event stream per aggregate instance in memory.
type MemStore[A cqrs.EventSourced[A, E], E cqrs.Event] struct {
	mu      sync.RWMutex
	streams map[string][]cqrs.EventEnvelope[E]
	settings
}

// NewMemStore creates an empty MemStore.
func NewMemStore[A cqrs.EventSourced[A, E], E cqrs.Event](options ...Option) *MemStore[A, E] {
	store := &MemStore[A, E]{streams: make(map[string][]cqrs.EventEnvelope[E])}

	for _, option := range options {
		option(&store.settings)
	}

	return store
}

// LoadEvents returns the committed envelopes of the aggregate instance in sequence order.
func (s *MemStore[A, E]) LoadEvents(ctx context.Context, aggregateID string) ([]cqrs.EventEnvelope[E], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.streams[aggregateID]), nil
}

// LoadAggregate rebuilds the aggregate instance by applying its events to the zero value.
func (s *MemStore[A, E]) LoadAggregate(ctx context.Context, aggregateID string) (*AggregateContext[A], error) {
	envelopes, err := s.LoadEvents(ctx, aggregateID)
	if err != nil {
		return nil, err
	}

	aggregateContext := NewAggregateContext[A](aggregateID)

	for _, envelope := range envelopes {
		aggregateContext.aggregate = aggregateContext.aggregate.Apply(envelope.Payload)
		aggregateContext.sequence = envelope.Sequence
	}

	return aggregateContext, nil
}

// Commit appends the events to the stream of the context's aggregate instance.
// It fails with cqrs.ErrConcurrencyConflict if the stream moved past the context's sequence.
func (s *MemStore[A, E]) Commit(
	ctx context.Context,
	events []E,
	aggregateContext *AggregateContext[A],
	metadata cqrs.Metadata,
) ([]cqrs.EventEnvelope[E], error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aggregateID := aggregateContext.AggregateID()
	if aggregateID == "" {
		return nil, cqrs.ErrEmptyAggregateID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[aggregateID]
	actual := uint(len(stream))

	if actual != aggregateContext.CurrentSequence() {
		if s.logger != nil {
			s.logger.Info(logMsgConcurrencyConflict,
				logAttrAggregateID, aggregateID,
				logAttrExpectedSequence, aggregateContext.CurrentSequence(),
				logAttrActualSequence, actual,
			)
		}

		return nil, cqrs.ErrConcurrencyConflict
	}

	committed := make([]cqrs.EventEnvelope[E], 0, len(events))

	for i, event := range events {
		committed = append(committed, cqrs.BuildEventEnvelope(aggregateID, actual+uint(i)+1, event, cqrs.ForEvent(metadata)))
	}

	s.streams[aggregateID] = append(stream, committed...)

	if s.logger != nil {
		s.logger.Debug(logMsgEventsCommitted, logAttrAggregateID, aggregateID, logAttrEventCount, len(committed))
	}

	return slices.Clone(committed), nil
}

// AggregateIDs returns the ids of all aggregate instances with at least one event, sorted.
func (s *MemStore[A, E]) AggregateIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.streams))
	for id := range s.streams {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

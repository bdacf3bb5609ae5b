package postgresstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/AntonStoeckl/cqrs-es-go/internal/testdoubles" //nolint:revive
	"github.com/AntonStoeckl/cqrs-es-go/postgresstore/internal/adapters"
)

// sourceRecorder answers every query with no rows and records the read source it was asked for.
type sourceRecorder struct {
	sources []adapters.ReadSource
}

func (r *sourceRecorder) Query(_ context.Context, source adapters.ReadSource, _ string) (adapters.DBRows, error) {
	r.sources = append(r.sources, source)

	return emptyRows{}, nil
}

func (r *sourceRecorder) Exec(context.Context, string) (adapters.DBResult, error) {
	panic("not expected")
}

type emptyRows struct{}

func (emptyRows) Next() bool        { return false }
func (emptyRows) Scan(...any) error { return nil }
func (emptyRows) Err() error        { return nil }
func (emptyRows) Close() error      { return nil }

func Test_EventStore_ShouldLoadAggregatesFromPrimary_AndEventsFromReplica(t *testing.T) {
	// setup
	recorder := &sourceRecorder{}
	store, err := NewEventStore[Counter, CounterEvent](&Database{db: recorder}, JSONCodec[CounterEvent]{})
	require.NoError(t, err)

	// act
	_, err = store.LoadAggregate(context.Background(), "counter-1")
	require.NoError(t, err)
	_, err = store.LoadEvents(context.Background(), "counter-1")
	require.NoError(t, err)

	// assert
	assert.Equal(t, []adapters.ReadSource{adapters.Primary, adapters.Replica}, recorder.sources)
}

func Test_ViewRepository_ShouldLoadVersionedViewsFromPrimary_AndPlainViewsFromReplica(t *testing.T) {
	// setup
	recorder := &sourceRecorder{}
	repository, err := NewViewRepository[map[string]int](&Database{db: recorder}, "totals")
	require.NoError(t, err)

	// act
	_, _, _, err = repository.LoadWithContext(context.Background(), "counter-1")
	require.NoError(t, err)
	_, _, err = repository.Load(context.Background(), "counter-1")
	require.NoError(t, err)

	// assert
	assert.Equal(t, []adapters.ReadSource{adapters.Primary, adapters.Replica}, recorder.sources)
}

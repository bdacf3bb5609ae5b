package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
	"github.com/AntonStoeckl/cqrs-es-go/memstore"
)

type lendingView struct {
	Readers []string `json:"readers"`
}

func Test_ViewRepository_ShouldStoreAndLoadIsolatedCopies(t *testing.T) {
	// setup
	ctx := context.Background()
	repository := memstore.NewViewRepository[lendingView]()

	// arrange
	view, viewContext, found, err := repository.LoadWithContext(ctx, "book-1")
	require.NoError(t, err)
	require.False(t, found)
	view.Readers = append(view.Readers, "reader-1")

	// act
	err = repository.UpdateView(ctx, view, viewContext)
	view.Readers[0] = "mutated"

	// assert
	require.NoError(t, err)
	loaded, found, err := repository.Load(ctx, "book-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"reader-1"}, loaded.Readers)
}

func Test_ViewRepository_ShouldRejectStaleVersion(t *testing.T) {
	// setup
	ctx := context.Background()
	repository := memstore.NewViewRepository[lendingView]()

	// arrange
	_, stale, _, err := repository.LoadWithContext(ctx, "book-1")
	require.NoError(t, err)
	require.NoError(t, repository.UpdateView(ctx, lendingView{Readers: []string{"a"}}, stale))

	// act
	err = repository.UpdateView(ctx, lendingView{Readers: []string{"b"}}, stale)

	// assert
	assert.ErrorIs(t, err, cqrs.ErrViewVersionConflict)
	_, current, _, err := repository.LoadWithContext(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, uint(1), current.Version)
}

func Test_ViewRepository_ShouldRejectEmptyViewID(t *testing.T) {
	// setup
	repository := memstore.NewViewRepository[lendingView]()

	// act
	err := repository.UpdateView(context.Background(), lendingView{}, cqrs.ViewContext{})

	// assert
	assert.ErrorIs(t, err, cqrs.ErrEmptyViewID)
}

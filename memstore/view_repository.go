package memstore

import (
	"context"
	"errors"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

type storedView struct {
	data    []byte
	version uint
}

// ViewRepository keeps serialized views in memory.
// Views are stored as JSON so a loaded view never shares state with the caller's copy.
type ViewRepository[V any] struct {
	mu    sync.RWMutex
	views map[string]storedView
}

// NewViewRepository creates an empty ViewRepository.
func NewViewRepository[V any]() *ViewRepository[V] {
	return &ViewRepository[V]{views: make(map[string]storedView)}
}

// Load returns the view and true, or the zero view and false if it does not exist.
func (r *ViewRepository[V]) Load(ctx context.Context, viewID string) (V, bool, error) {
	view, _, found, err := r.LoadWithContext(ctx, viewID)

	return view, found, err
}

// LoadWithContext returns the view together with the version it was stored at.
func (r *ViewRepository[V]) LoadWithContext(ctx context.Context, viewID string) (V, cqrs.ViewContext, bool, error) {
	var view V

	if err := ctx.Err(); err != nil {
		return view, cqrs.ViewContext{}, false, err
	}

	if viewID == "" {
		return view, cqrs.ViewContext{}, false, cqrs.ErrEmptyViewID
	}

	r.mu.RLock()
	stored, found := r.views[viewID]
	r.mu.RUnlock()

	viewContext := cqrs.ViewContext{ViewID: viewID, Version: stored.version}

	if !found {
		return view, viewContext, false, nil
	}

	if err := jsoniter.ConfigFastest.Unmarshal(stored.data, &view); err != nil {
		return view, viewContext, false, errors.Join(cqrs.ErrSerializingViewFailed, err)
	}

	return view, viewContext, true, nil
}

// UpdateView stores the view if it was not updated since it was loaded with viewContext.
func (r *ViewRepository[V]) UpdateView(ctx context.Context, view V, viewContext cqrs.ViewContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if viewContext.ViewID == "" {
		return cqrs.ErrEmptyViewID
	}

	data, err := jsoniter.ConfigFastest.Marshal(view)
	if err != nil {
		return errors.Join(cqrs.ErrSerializingViewFailed, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.views[viewContext.ViewID].version != viewContext.Version {
		return cqrs.ErrViewVersionConflict
	}

	r.views[viewContext.ViewID] = storedView{data: data, version: viewContext.Version + 1}

	return nil
}

package cqrs

import (
	"context"
)

const (
	logMsgViewLoadFailed   = "cqrs: loading view failed"
	logMsgViewUpdateFailed = "cqrs: updating view failed"
	logAttrViewID          = "view_id"
)

// ViewPointer constrains PV to be a pointer to V that implements View.
type ViewPointer[E Event, V any] interface {
	*V
	View[E]
}

// ViewErrorHandler is called by GenericQuery when a view cannot be loaded or updated.
type ViewErrorHandler func(ctx context.Context, viewID string, err error)

// GenericQuery is a Query that keeps one view per aggregate instance in a ViewRepository.
//
// On every dispatch it loads the view for the aggregate id, folds the events into it in order,
// and stores it again. Failures are absorbed: they are logged and handed to the error handler,
// they never reach the dispatching pipeline.
type GenericQuery[E Event, V any, PV ViewPointer[E, V]] struct {
	repository   ViewRepository[V]
	errorHandler ViewErrorHandler
	logger       Logger
}

// NewGenericQuery creates a GenericQuery backed by the repository.
func NewGenericQuery[E Event, V any, PV ViewPointer[E, V]](repository ViewRepository[V]) *GenericQuery[E, V, PV] {
	return &GenericQuery[E, V, PV]{repository: repository}
}

// WithErrorHandler sets the handler that receives view load and update failures.
func (q *GenericQuery[E, V, PV]) WithErrorHandler(handler ViewErrorHandler) *GenericQuery[E, V, PV] {
	q.errorHandler = handler

	return q
}

// WithLogger sets the logger that receives view load and update failures at error level.
func (q *GenericQuery[E, V, PV]) WithLogger(logger Logger) *GenericQuery[E, V, PV] {
	q.logger = logger

	return q
}

// Dispatch folds the events into the view of the aggregate instance and stores it.
func (q *GenericQuery[E, V, PV]) Dispatch(ctx context.Context, aggregateID string, events []EventEnvelope[E]) {
	view, viewContext, _, loadErr := q.repository.LoadWithContext(ctx, aggregateID)
	if loadErr != nil {
		q.handleError(ctx, logMsgViewLoadFailed, aggregateID, loadErr)
		return
	}

	for _, event := range events {
		PV(&view).Update(event)
	}

	if updateErr := q.repository.UpdateView(ctx, view, viewContext); updateErr != nil {
		q.handleError(ctx, logMsgViewUpdateFailed, aggregateID, updateErr)
	}
}

// Load returns the current view of one aggregate instance.
func (q *GenericQuery[E, V, PV]) Load(ctx context.Context, viewID string) (V, bool, error) {
	return q.repository.Load(ctx, viewID)
}

func (q *GenericQuery[E, V, PV]) handleError(ctx context.Context, msg string, viewID string, err error) {
	if q.logger != nil {
		q.logger.Error(msg, logAttrViewID, viewID, logAttrError, err.Error())
	}

	if q.errorHandler != nil {
		q.errorHandler(ctx, viewID, err)
	}
}

package postgresstore

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
	"github.com/AntonStoeckl/cqrs-es-go/postgresstore/internal/adapters"
)

const (
	logMsgViewLoaded          = "view loaded"
	logMsgViewUpdated         = "view updated"
	logMsgViewVersionConflict = "view version conflict detected"
	logAttrViewType           = "view_type"
	logAttrViewID             = "view_id"
	logAttrVersion            = "version"
	logActionLoadView         = "load view"
	logActionUpdateView       = "update view"
	colViewType               = "view_type"
	colViewID                 = "view_id"
	colVersion                = "version"
	colUpdatedAt              = "updated_at"
)

// ViewRepository stores views of type V as JSON in the views table, keyed by view type and view id.
type ViewRepository[V any] struct {
	db       adapters.DBAdapter
	viewType string
	settings
}

// NewViewRepository creates a ViewRepository for the view type on the database.
func NewViewRepository[V any](database *Database, viewType string, options ...Option) (*ViewRepository[V], error) {
	if database == nil {
		return nil, ErrNilDatabaseConnection
	}

	if viewType == "" {
		return nil, ErrEmptyViewTypeSupplied
	}

	s, err := newSettings(options)
	if err != nil {
		return nil, err
	}

	return &ViewRepository[V]{db: database.db, viewType: viewType, settings: s}, nil
}

// Load returns the view and true, or the zero view and false if it does not exist.
// With a replica configured the view is read from the replica.
func (r *ViewRepository[V]) Load(ctx context.Context, viewID string) (V, bool, error) {
	view, _, found, err := r.observedLoad(ctx, viewID, adapters.Replica)

	return view, found, err
}

// LoadWithContext returns the view together with the version it was stored at.
// It reads from the primary, the version guards the next UpdateView.
func (r *ViewRepository[V]) LoadWithContext(ctx context.Context, viewID string) (V, cqrs.ViewContext, bool, error) {
	return r.observedLoad(ctx, viewID, adapters.Primary)
}

func (r *ViewRepository[V]) observedLoad(
	ctx context.Context,
	viewID string,
	source adapters.ReadSource,
) (V, cqrs.ViewContext, bool, error) {

	var view V

	if viewID == "" {
		return view, cqrs.ViewContext{}, false, cqrs.ErrEmptyViewID
	}

	op, ctx := r.startOperation(ctx, operationLoadView, map[string]string{spanAttrViewID: viewID})

	view, version, found, err := r.load(ctx, viewID, source)
	if err != nil {
		op.finishError(err)
		return view, cqrs.ViewContext{}, false, err
	}

	op.finishSuccess(0)

	return view, cqrs.ViewContext{ViewID: viewID, Version: version}, found, nil
}

func (r *ViewRepository[V]) load(ctx context.Context, viewID string, source adapters.ReadSource) (V, uint, bool, error) {
	var view V

	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		From(r.viewTableName).
		Select(colVersion, colPayload).
		Where(goqu.Ex{colViewType: r.viewType, colViewID: viewID}).
		ToSQL()
	if err != nil {
		r.logError(ctx, logMsgBuildSelectQueryFailed, err)
		return view, 0, false, errors.Join(ErrBuildingQueryFailed, err)
	}

	start := time.Now()
	rows, err := r.db.Query(ctx, source, sqlQuery)
	duration := time.Since(start)
	r.logDebug(ctx, logMsgSQLExecuted+logActionLoadView, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)

	if err != nil {
		r.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)
		return view, 0, false, errors.Join(ErrQueryingViewFailed, err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return view, 0, false, errors.Join(ErrQueryingViewFailed, err)
		}

		return view, 0, false, nil
	}

	var version int64
	var payload []byte

	if err := rows.Scan(&version, &payload); err != nil {
		r.logError(ctx, logMsgScanRowFailed, err)
		return view, 0, false, errors.Join(ErrScanningDBRowFailed, err)
	}

	if err := jsoniter.ConfigFastest.Unmarshal(payload, &view); err != nil {
		return view, 0, false, errors.Join(cqrs.ErrSerializingViewFailed, err)
	}

	r.logDebug(ctx, logMsgViewLoaded, logAttrViewType, r.viewType, logAttrViewID, viewID, logAttrVersion, version)

	return view, uint(version), true, nil
}

// UpdateView stores the view if it was not updated since it was loaded with viewContext.
// A view loaded at version 0 is inserted, any other version is updated in place.
func (r *ViewRepository[V]) UpdateView(ctx context.Context, view V, viewContext cqrs.ViewContext) error {
	if viewContext.ViewID == "" {
		return cqrs.ErrEmptyViewID
	}

	op, ctx := r.startOperation(ctx, operationUpdateView, map[string]string{spanAttrViewID: viewContext.ViewID})

	if err := r.update(ctx, view, viewContext); err != nil {
		op.finishError(err)
		return err
	}

	op.finishSuccess(0)

	return nil
}

func (r *ViewRepository[V]) update(ctx context.Context, view V, viewContext cqrs.ViewContext) error {
	payload, err := jsoniter.ConfigFastest.Marshal(view)
	if err != nil {
		return errors.Join(cqrs.ErrSerializingViewFailed, err)
	}

	sqlQuery, err := r.buildUpsertQuery(payload, viewContext)
	if err != nil {
		r.logError(ctx, logMsgBuildInsertQueryFailed, err)
		return err
	}

	start := time.Now()
	result, err := r.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	r.logDebug(ctx, logMsgSQLExecuted+logActionUpdateView, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)

	if err != nil {
		if adapters.IsUniqueViolation(err) {
			r.logConflict(ctx, viewContext)
			return cqrs.ErrViewVersionConflict
		}

		r.logError(ctx, logMsgDBExecFailed, err, logAttrQuery, sqlQuery)

		return errors.Join(ErrStoringViewFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Join(ErrGettingRowsAffectedFailed, err)
	}

	if rowsAffected == 0 {
		r.logConflict(ctx, viewContext)
		return cqrs.ErrViewVersionConflict
	}

	r.logDebug(ctx, logMsgViewUpdated,
		logAttrViewType, r.viewType,
		logAttrViewID, viewContext.ViewID,
		logAttrVersion, viewContext.Version+1,
	)

	return nil
}

func (r *ViewRepository[V]) buildUpsertQuery(payload []byte, viewContext cqrs.ViewContext) (string, error) {
	builder := goqu.Dialect(dialectPostgres)

	var sqlQuery string
	var err error

	if viewContext.Version == 0 {
		sqlQuery, _, err = builder.
			Insert(r.viewTableName).
			Rows(goqu.Record{
				colViewType: r.viewType,
				colViewID:   viewContext.ViewID,
				colVersion:  1,
				colPayload:  goqu.L(castJsonb, string(payload)),
			}).
			OnConflict(goqu.DoNothing()).
			ToSQL()
	} else {
		sqlQuery, _, err = builder.
			Update(r.viewTableName).
			Set(goqu.Record{
				colVersion:   viewContext.Version + 1,
				colPayload:   goqu.L(castJsonb, string(payload)),
				colUpdatedAt: goqu.L("NOW()"),
			}).
			Where(goqu.Ex{colViewType: r.viewType, colViewID: viewContext.ViewID, colVersion: viewContext.Version}).
			ToSQL()
	}

	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

func (r *ViewRepository[V]) logConflict(ctx context.Context, viewContext cqrs.ViewContext) {
	r.logOperation(ctx, logMsgViewVersionConflict,
		logAttrViewType, r.viewType,
		logAttrViewID, viewContext.ViewID,
		logAttrVersion, viewContext.Version,
	)
}

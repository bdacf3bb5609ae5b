package postgresstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
	"github.com/AntonStoeckl/cqrs-es-go/postgresstore/internal/adapters"
)

const (
	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgBuildInsertQueryFailed = "failed to build insert query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgDBExecFailed           = "database execution failed"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgDecodeEventFailed      = "failed to decode event from database row"
	logMsgEncodeEventFailed      = "failed to encode event"
	logMsgRowsAffectedFailed     = "failed to get rows affected count"
	logMsgEventsLoaded           = "events loaded"
	logMsgEventsCommitted        = "events committed"
	logMsgConcurrencyConflict    = "concurrency conflict detected"
	logMsgSQLExecuted            = "executed sql for: "
	logAttrError                 = "error"
	logAttrQuery                 = "query"
	logAttrAggregateType         = "aggregate_type"
	logAttrAggregateID           = "aggregate_id"
	logAttrEventType             = "event_type"
	logAttrEventCount            = "event_count"
	logAttrDurationMS            = "duration_ms"
	logAttrExpectedEvents        = "expected_events"
	logAttrRowsAffected          = "rows_affected"
	logAttrExpectedSequence      = "expected_sequence"
	logActionLoad                = "load"
	logActionCommit              = "commit"
	colAggregateType             = "aggregate_type"
	colAggregateID               = "aggregate_id"
	colSequence                  = "sequence"
	colEventType                 = "event_type"
	colEventVersion              = "event_version"
	colPayload                   = "payload"
	colMetadata                  = "metadata"
	cteContext                   = "context"
	cteVals                      = "vals"
	dialectPostgres              = "postgres"
	aliasMaxSeq                  = "max_seq"
	castText                     = "?::text"
	castBigint                   = "?::bigint"
	castJsonb                    = "?::jsonb"
)

// EventStore is the Postgres implementation of cqrs.EventStore for aggregate A with events E.
type EventStore[A cqrs.EventSourced[A, E], E cqrs.Event] struct {
	db            adapters.DBAdapter
	codec         EventCodec[E]
	aggregateType string
	settings
}

// NewEventStore creates an EventStore for one aggregate type on the database.
func NewEventStore[A cqrs.EventSourced[A, E], E cqrs.Event](
	database *Database,
	codec EventCodec[E],
	options ...Option,
) (*EventStore[A, E], error) {

	if database == nil {
		return nil, ErrNilDatabaseConnection
	}

	if codec == nil {
		return nil, ErrNilCodec
	}

	s, err := newSettings(options)
	if err != nil {
		return nil, err
	}

	var zero A

	return &EventStore[A, E]{
		db:            database.db,
		codec:         codec,
		aggregateType: zero.AggregateType(),
		settings:      s,
	}, nil
}

// LoadEvents returns the committed envelopes of the aggregate instance in sequence order.
// With a replica configured they are read from the replica and may lag behind the primary.
func (es *EventStore[A, E]) LoadEvents(ctx context.Context, aggregateID string) ([]cqrs.EventEnvelope[E], error) {
	return es.observedLoadEvents(ctx, aggregateID, adapters.Replica)
}

func (es *EventStore[A, E]) observedLoadEvents(
	ctx context.Context,
	aggregateID string,
	source adapters.ReadSource,
) ([]cqrs.EventEnvelope[E], error) {

	op, ctx := es.startOperation(ctx, operationLoad, map[string]string{spanAttrAggregateID: aggregateID})

	envelopes, err := es.loadEvents(ctx, aggregateID, source)
	if err != nil {
		op.finishError(err)
		return nil, err
	}

	op.finishSuccess(len(envelopes))

	return envelopes, nil
}

func (es *EventStore[A, E]) loadEvents(ctx context.Context, aggregateID string, source adapters.ReadSource) ([]cqrs.EventEnvelope[E], error) {
	sqlQuery, err := es.buildSelectQuery(aggregateID)
	if err != nil {
		es.logError(ctx, logMsgBuildSelectQueryFailed, err)
		return nil, err
	}

	start := time.Now()
	rows, err := es.db.Query(ctx, source, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(ctx, sqlQuery, logActionLoad, duration)

	if err != nil {
		es.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)
		return nil, errors.Join(ErrQueryingEventsFailed, err)
	}
	defer es.closeRows(ctx, rows)

	envelopes, err := es.processQueryResults(ctx, aggregateID, rows)
	if err != nil {
		return nil, err
	}

	es.logDebug(ctx, logMsgEventsLoaded,
		logAttrAggregateID, aggregateID,
		logAttrEventCount, len(envelopes),
		logAttrDurationMS, toMilliseconds(duration),
	)

	return envelopes, nil
}

// processQueryResults scans the rows and decodes them into envelopes.
func (es *EventStore[A, E]) processQueryResults(
	ctx context.Context,
	aggregateID string,
	rows adapters.DBRows,
) ([]cqrs.EventEnvelope[E], error) {

	envelopes := make([]cqrs.EventEnvelope[E], 0)

	for rows.Next() {
		var sequence int64
		var eventType, eventVersion string
		var payload, metadata []byte

		if err := rows.Scan(&sequence, &eventType, &eventVersion, &payload, &metadata); err != nil {
			es.logError(ctx, logMsgScanRowFailed, err)
			return nil, errors.Join(ErrScanningDBRowFailed, err)
		}

		serialized, err := BuildSerializedEvent(uint(sequence), eventType, eventVersion, payload, metadata)
		if err != nil {
			es.logError(ctx, logMsgDecodeEventFailed, err, logAttrEventType, eventType)
			return nil, errors.Join(ErrDecodingEventFailed, err)
		}

		envelope, err := es.decode(aggregateID, serialized)
		if err != nil {
			es.logError(ctx, logMsgDecodeEventFailed, err, logAttrEventType, eventType)
			return nil, errors.Join(ErrDecodingEventFailed, err)
		}

		envelopes = append(envelopes, envelope)
	}

	if err := rows.Err(); err != nil {
		es.logError(ctx, logMsgScanRowFailed, err)
		return nil, errors.Join(ErrScanningDBRowFailed, err)
	}

	return envelopes, nil
}

func (es *EventStore[A, E]) decode(aggregateID string, serialized SerializedEvent) (cqrs.EventEnvelope[E], error) {
	payload, err := es.codec.Decode(serialized.EventType, serialized.EventVersion, serialized.PayloadJSON)
	if err != nil {
		return cqrs.EventEnvelope[E]{}, err
	}

	metadata := cqrs.Metadata{}
	if err := jsoniter.ConfigFastest.Unmarshal(serialized.MetadataJSON, &metadata); err != nil {
		return cqrs.EventEnvelope[E]{}, err
	}

	return cqrs.BuildEventEnvelope(aggregateID, serialized.Sequence, payload, metadata), nil
}

// closeRows closes database rows and logs any errors.
func (es *EventStore[A, E]) closeRows(ctx context.Context, rows adapters.DBRows) {
	if err := rows.Close(); err != nil {
		es.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, err.Error())
	}
}

// LoadAggregate rebuilds the aggregate instance by applying its events to the zero value.
// It always reads from the primary, the context's sequence guards the next commit.
func (es *EventStore[A, E]) LoadAggregate(ctx context.Context, aggregateID string) (*AggregateContext[A], error) {
	envelopes, err := es.observedLoadEvents(ctx, aggregateID, adapters.Primary)
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
//
// It fails with cqrs.ErrConcurrencyConflict if the stream moved past the context's sequence,
// either detected by the insert guard or by the primary key.
func (es *EventStore[A, E]) Commit(
	ctx context.Context,
	events []E,
	aggregateContext *AggregateContext[A],
	metadata cqrs.Metadata,
) ([]cqrs.EventEnvelope[E], error) {

	aggregateID := aggregateContext.AggregateID()
	op, ctx := es.startOperation(ctx, operationCommit, map[string]string{
		spanAttrAggregateID: aggregateID,
		spanAttrEventCount:  fmt.Sprintf("%d", len(events)),
	})

	envelopes, err := es.commit(ctx, events, aggregateContext, metadata)
	if err != nil {
		op.finishError(err)
		return nil, err
	}

	op.finishSuccess(len(envelopes))

	return envelopes, nil
}

func (es *EventStore[A, E]) commit(
	ctx context.Context,
	events []E,
	aggregateContext *AggregateContext[A],
	metadata cqrs.Metadata,
) ([]cqrs.EventEnvelope[E], error) {

	aggregateID := aggregateContext.AggregateID()
	if aggregateID == "" {
		return nil, cqrs.ErrEmptyAggregateID
	}

	if len(events) == 0 {
		return []cqrs.EventEnvelope[E]{}, nil
	}

	expectedSequence := aggregateContext.CurrentSequence()

	serialized, envelopes, err := es.serialize(ctx, aggregateID, expectedSequence, events, metadata)
	if err != nil {
		return nil, err
	}

	sqlQuery, err := es.buildAppendQuery(serialized, aggregateID, expectedSequence)
	if err != nil {
		es.logError(ctx, logMsgBuildInsertQueryFailed, err, logAttrEventCount, len(serialized))
		return nil, err
	}

	start := time.Now()
	result, execErr := es.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(ctx, sqlQuery, logActionCommit, duration)

	if execErr != nil {
		if adapters.IsUniqueViolation(execErr) {
			es.logConflict(ctx, aggregateID, len(serialized), 0, expectedSequence)
			return nil, cqrs.ErrConcurrencyConflict
		}

		es.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)

		return nil, errors.Join(ErrAppendingEventsFailed, execErr)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		es.logError(ctx, logMsgRowsAffectedFailed, err)
		return nil, errors.Join(ErrGettingRowsAffectedFailed, err)
	}

	if rowsAffected < int64(len(serialized)) {
		es.logConflict(ctx, aggregateID, len(serialized), rowsAffected, expectedSequence)
		return nil, cqrs.ErrConcurrencyConflict
	}

	es.logOperation(ctx, logMsgEventsCommitted,
		logAttrAggregateType, es.aggregateType,
		logAttrAggregateID, aggregateID,
		logAttrEventCount, len(serialized),
		logAttrDurationMS, toMilliseconds(duration),
	)

	return envelopes, nil
}

// serialize encodes the events and stamps their sequences and per-event metadata.
func (es *EventStore[A, E]) serialize(
	ctx context.Context,
	aggregateID string,
	expectedSequence uint,
	events []E,
	metadata cqrs.Metadata,
) ([]SerializedEvent, []cqrs.EventEnvelope[E], error) {

	serialized := make([]SerializedEvent, 0, len(events))
	envelopes := make([]cqrs.EventEnvelope[E], 0, len(events))

	for i, event := range events {
		sequence := expectedSequence + uint(i) + 1
		eventMetadata := cqrs.ForEvent(metadata)

		payloadJSON, err := es.codec.Encode(event)
		if err != nil {
			es.logError(ctx, logMsgEncodeEventFailed, err, logAttrEventType, event.EventType())
			return nil, nil, errors.Join(ErrEncodingEventFailed, err)
		}

		metadataJSON, err := jsoniter.ConfigFastest.Marshal(eventMetadata)
		if err != nil {
			return nil, nil, errors.Join(ErrEncodingEventFailed, err)
		}

		row, err := BuildSerializedEvent(sequence, event.EventType(), event.EventVersion(), payloadJSON, metadataJSON)
		if err != nil {
			es.logError(ctx, logMsgEncodeEventFailed, err, logAttrEventType, event.EventType())
			return nil, nil, errors.Join(ErrEncodingEventFailed, err)
		}

		serialized = append(serialized, row)
		envelopes = append(envelopes, cqrs.BuildEventEnvelope(aggregateID, sequence, event, eventMetadata))
	}

	return serialized, envelopes, nil
}

func (es *EventStore[A, E]) logConflict(
	ctx context.Context,
	aggregateID string,
	expectedEvents int,
	rowsAffected int64,
	expectedSequence uint,
) {

	es.logOperation(ctx, logMsgConcurrencyConflict,
		logAttrAggregateID, aggregateID,
		logAttrExpectedEvents, expectedEvents,
		logAttrRowsAffected, rowsAffected,
		logAttrExpectedSequence, expectedSequence,
	)
}

func (es *EventStore[A, E]) streamCondition(aggregateID string) goqu.Ex {
	return goqu.Ex{colAggregateType: es.aggregateType, colAggregateID: aggregateID}
}

func (es *EventStore[A, E]) buildSelectQuery(aggregateID string) (string, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(es.eventTableName).
		Select(colSequence, colEventType, colEventVersion, colPayload, colMetadata).
		Where(es.streamCondition(aggregateID)).
		Order(goqu.I(colSequence).Asc())

	sqlQuery, _, err := selectStmt.ToSQL()
	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

// buildAppendQuery builds the guarded insert for single or multiple events.
func (es *EventStore[A, E]) buildAppendQuery(events []SerializedEvent, aggregateID string, expectedSequence uint) (string, error) {
	if len(events) == 1 {
		return es.buildInsertQueryForSingleEvent(events[0], aggregateID, expectedSequence)
	}

	return es.buildInsertQueryForMultipleEvents(events, aggregateID, expectedSequence)
}

func (es *EventStore[A, E]) buildInsertQueryForSingleEvent(
	event SerializedEvent,
	aggregateID string,
	expectedSequence uint,
) (string, error) {

	builder := goqu.Dialect(dialectPostgres)

	cteStmt := builder.
		From(es.eventTableName).
		Select(goqu.MAX(colSequence).As(aliasMaxSeq)).
		Where(es.streamCondition(aggregateID))

	selectStmt := builder.
		From(cteContext).
		Select(
			goqu.L(castText, es.aggregateType),
			goqu.L(castText, aggregateID),
			goqu.L(castBigint, event.Sequence),
			goqu.L(castText, event.EventType),
			goqu.L(castText, event.EventVersion),
			goqu.L(castJsonb, string(event.PayloadJSON)),
			goqu.L(castJsonb, string(event.MetadataJSON)),
		).
		Where(goqu.COALESCE(goqu.C(aliasMaxSeq), 0).Eq(goqu.V(expectedSequence)))

	insertStmt := builder.
		Insert(es.eventTableName).
		Cols(colAggregateType, colAggregateID, colSequence, colEventType, colEventVersion, colPayload, colMetadata).
		FromQuery(selectStmt).
		With(cteContext, cteStmt)

	sqlQuery, _, err := insertStmt.ToSQL()
	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

func (es *EventStore[A, E]) buildInsertQueryForMultipleEvents(
	events []SerializedEvent,
	aggregateID string,
	expectedSequence uint,
) (string, error) {

	builder := goqu.Dialect(dialectPostgres)

	cteStmt := builder.
		From(es.eventTableName).
		Select(goqu.MAX(colSequence).As(aliasMaxSeq)).
		Where(es.streamCondition(aggregateID))

	unionStatements := make([]*goqu.SelectDataset, len(events))
	for i, event := range events {
		unionStatements[i] = builder.
			Select(
				goqu.L(castText, es.aggregateType).As(colAggregateType),
				goqu.L(castText, aggregateID).As(colAggregateID),
				goqu.L(castBigint, event.Sequence).As(colSequence),
				goqu.L(castText, event.EventType).As(colEventType),
				goqu.L(castText, event.EventVersion).As(colEventVersion),
				goqu.L(castJsonb, string(event.PayloadJSON)).As(colPayload),
				goqu.L(castJsonb, string(event.MetadataJSON)).As(colMetadata),
			)
	}

	valuesStmt := unionStatements[0]
	for i := 1; i < len(unionStatements); i++ {
		valuesStmt = valuesStmt.UnionAll(unionStatements[i])
	}

	columns := []string{colAggregateType, colAggregateID, colSequence, colEventType, colEventVersion, colPayload, colMetadata}
	valsColumns := make([]any, 0, len(columns))
	for _, column := range columns {
		valsColumns = append(valsColumns, fmt.Sprintf("%s.%s", cteVals, column))
	}

	insertStmt := builder.
		Insert(es.eventTableName).
		Cols(colAggregateType, colAggregateID, colSequence, colEventType, colEventVersion, colPayload, colMetadata).
		With(cteContext, cteStmt).
		With(cteVals, valuesStmt).
		FromQuery(
			builder.From(cteContext, cteVals).
				Select(valsColumns...).
				Where(goqu.COALESCE(goqu.C(aliasMaxSeq), 0).Eq(goqu.V(expectedSequence))),
		)

	sqlQuery, _, err := insertStmt.ToSQL()
	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

func (es *EventStore[A, E]) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	es.logDebug(ctx, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
}

package postgresstore

import (
	"errors"
)

var (
	ErrNilDatabaseConnection     = errors.New("database connection must not be nil")
	ErrEmptyTableNameSupplied    = errors.New("empty table name supplied")
	ErrEmptyViewTypeSupplied     = errors.New("empty view type supplied")
	ErrNilCodec                  = errors.New("event codec must not be nil")
	ErrBuildingQueryFailed       = errors.New("building query failed")
	ErrQueryingEventsFailed      = errors.New("querying events failed")
	ErrScanningDBRowFailed       = errors.New("scanning db row failed")
	ErrEncodingEventFailed       = errors.New("encoding event failed")
	ErrDecodingEventFailed       = errors.New("decoding event failed")
	ErrAppendingEventsFailed     = errors.New("appending events failed")
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")
	ErrUnknownEventType          = errors.New("unknown event type")
	ErrInvalidPayloadJSON        = errors.New("payload json is not valid")
	ErrInvalidMetadataJSON       = errors.New("metadata json is not valid")
	ErrQueryingViewFailed        = errors.New("querying view failed")
	ErrStoringViewFailed         = errors.New("storing view failed")
	ErrExecutingSchemaFailed     = errors.New("executing schema statement failed")
)

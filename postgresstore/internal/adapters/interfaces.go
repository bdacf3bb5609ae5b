package adapters

import (
	"context"
)

// ReadSource selects the connection a query runs on.
type ReadSource int

const (
	// Primary is for reads that a write depends on, e.g. loading an aggregate before a commit.
	Primary ReadSource = iota

	// Replica is for reads that tolerate replication lag. Adapters without a replica use the primary.
	Replica
)

// DBAdapter is the connection the stores run their goqu-built SQL on.
type DBAdapter interface {
	Query(ctx context.Context, source ReadSource, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBRows is the subset of the drivers' row iterators the stores scan events and views from.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult carries the affected rows, which the stores compare with the rows they tried to write.
type DBResult interface {
	RowsAffected() (int64, error)
}

package postgresstore

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/cqrs-es-go/postgresstore/internal/adapters"
)

// Database is a Postgres connection the event store and the view repository run their SQL on.
type Database struct {
	db adapters.DBAdapter
}

// NewDatabaseFromPGXPool wraps a pgx pool.
func NewDatabaseFromPGXPool(pool *pgxpool.Pool) (*Database, error) {
	if pool == nil {
		return nil, ErrNilDatabaseConnection
	}

	return &Database{db: adapters.NewPGXAdapter(pool)}, nil
}

// NewDatabaseFromPGXPoolWithReplica wraps a primary pool for writes and a replica pool for reads.
//
// Reads on a replica may lag behind, so aggregates loaded from it can be stale. Commits stay
// correct because the optimistic check runs on the primary.
func NewDatabaseFromPGXPoolWithReplica(pool *pgxpool.Pool, replica *pgxpool.Pool) (*Database, error) {
	if pool == nil || replica == nil {
		return nil, ErrNilDatabaseConnection
	}

	return &Database{db: adapters.NewPGXAdapterWithReplica(pool, replica)}, nil
}

// NewDatabaseFromSQLDB wraps a database/sql DB, e.g. opened with the lib/pq driver.
func NewDatabaseFromSQLDB(db *sql.DB) (*Database, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return &Database{db: adapters.NewSQLAdapter(db)}, nil
}

// NewDatabaseFromSQLX wraps a sqlx DB.
func NewDatabaseFromSQLX(db *sqlx.DB) (*Database, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return &Database{db: adapters.NewSQLXAdapter(db)}, nil
}

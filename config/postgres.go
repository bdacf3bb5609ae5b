package config

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" driver for database/sql and sqlx

	"github.com/AntonStoeckl/cqrs-es-go/postgresstore"
)

const driverName = "postgres"

var (
	ErrLoadingConfigFailed   = errors.New("loading config from environment failed")
	ErrParsingDSNFailed      = errors.New("parsing postgres dsn failed")
	ErrOpeningDatabaseFailed = errors.New("opening postgres database failed")
)

// PostgresConfig holds the Postgres connection and table settings.
type PostgresConfig struct {
	DSN               string        `env:"CQRS_POSTGRES_DSN,required,notEmpty"`
	ReplicaDSN        string        `env:"CQRS_POSTGRES_REPLICA_DSN"`
	MaxConns          int32         `env:"CQRS_POSTGRES_MAX_CONNS"           envDefault:"50"`
	MinConns          int32         `env:"CQRS_POSTGRES_MIN_CONNS"           envDefault:"10"`
	MaxConnLifetime   time.Duration `env:"CQRS_POSTGRES_MAX_CONN_LIFETIME"   envDefault:"1h"`
	MaxConnIdleTime   time.Duration `env:"CQRS_POSTGRES_MAX_CONN_IDLE_TIME"  envDefault:"5m"`
	HealthCheckPeriod time.Duration `env:"CQRS_POSTGRES_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	ConnectTimeout    time.Duration `env:"CQRS_POSTGRES_CONNECT_TIMEOUT"     envDefault:"5s"`
	EventTable        string        `env:"CQRS_POSTGRES_EVENT_TABLE"         envDefault:"events"`
	ViewTable         string        `env:"CQRS_POSTGRES_VIEW_TABLE"          envDefault:"views"`
}

// LoadPostgresConfig reads the CQRS_POSTGRES_* variables.
func LoadPostgresConfig() (PostgresConfig, error) {
	cfg, err := env.ParseAs[PostgresConfig]()
	if err != nil {
		return PostgresConfig{}, errors.Join(ErrLoadingConfigFailed, err)
	}

	return cfg, nil
}

// PGXPoolConfig returns the pool config for the primary.
func (c PostgresConfig) PGXPoolConfig() (*pgxpool.Config, error) {
	return c.pgxPoolConfig(c.DSN)
}

// ReplicaPGXPoolConfig returns the pool config for the replica, or nil if no replica is configured.
func (c PostgresConfig) ReplicaPGXPoolConfig() (*pgxpool.Config, error) {
	if c.ReplicaDSN == "" {
		return nil, nil
	}

	return c.pgxPoolConfig(c.ReplicaDSN)
}

func (c PostgresConfig) pgxPoolConfig(dsn string) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Join(ErrParsingDSNFailed, err)
	}

	poolConfig.MaxConns = c.MaxConns
	poolConfig.MinConns = c.MinConns
	poolConfig.MaxConnLifetime = c.MaxConnLifetime
	poolConfig.MaxConnIdleTime = c.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = c.HealthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = c.ConnectTimeout

	return poolConfig, nil
}

// OpenDatabase connects pgx pools for the primary and, if configured, the replica.
// The returned close function closes all pools.
func (c PostgresConfig) OpenDatabase(ctx context.Context) (*postgresstore.Database, func(), error) {
	poolConfig, err := c.PGXPoolConfig()
	if err != nil {
		return nil, nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	replicaConfig, err := c.ReplicaPGXPoolConfig()
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	if replicaConfig == nil {
		database, err := postgresstore.NewDatabaseFromPGXPool(pool)
		return database, pool.Close, err
	}

	replica, err := pgxpool.NewWithConfig(ctx, replicaConfig)
	if err != nil {
		pool.Close()
		return nil, nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	closeAll := func() {
		replica.Close()
		pool.Close()
	}

	database, err := postgresstore.NewDatabaseFromPGXPoolWithReplica(pool, replica)

	return database, closeAll, err
}

// OpenSQLDB opens a database/sql pool on the lib/pq driver.
func (c PostgresConfig) OpenSQLDB() (*sql.DB, error) {
	db, err := sql.Open(driverName, c.DSN)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	db.SetMaxOpenConns(int(c.MaxConns))
	db.SetMaxIdleConns(int(c.MinConns))
	db.SetConnMaxLifetime(c.MaxConnLifetime)
	db.SetConnMaxIdleTime(c.MaxConnIdleTime)

	return db, nil
}

// OpenSQLX opens a sqlx pool on the lib/pq driver.
func (c PostgresConfig) OpenSQLX() (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, c.DSN)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	db.SetMaxOpenConns(int(c.MaxConns))
	db.SetMaxIdleConns(int(c.MinConns))
	db.SetConnMaxLifetime(c.MaxConnLifetime)
	db.SetConnMaxIdleTime(c.MaxConnIdleTime)

	return db, nil
}

// StoreOptions returns the table name options for postgresstore.
func (c PostgresConfig) StoreOptions() []postgresstore.Option {
	return []postgresstore.Option{
		postgresstore.WithEventTableName(c.EventTable),
		postgresstore.WithViewTableName(c.ViewTable),
	}
}

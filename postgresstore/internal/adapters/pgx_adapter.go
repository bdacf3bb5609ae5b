package adapters

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGXAdapter runs writes and primary reads on the primary pool and replica reads on the replica pool.
type PGXAdapter struct {
	primary *pgxpool.Pool
	replica *pgxpool.Pool
}

func NewPGXAdapter(primary *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{primary: primary}
}

func NewPGXAdapterWithReplica(primary *pgxpool.Pool, replica *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{primary: primary, replica: replica}
}

func (p *PGXAdapter) Query(ctx context.Context, source ReadSource, query string) (DBRows, error) {
	rows, err := p.poolFor(source).Query(ctx, query)
	if err != nil {
		return nil, err
	}

	return pgxRows{Rows: rows}, nil
}

func (p *PGXAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	tag, err := p.primary.Exec(ctx, query)
	if err != nil {
		return nil, err
	}

	return pgxResult(tag), nil
}

func (p *PGXAdapter) poolFor(source ReadSource) *pgxpool.Pool {
	if source == Replica && p.replica != nil {
		return p.replica
	}

	return p.primary
}

// pgxRows adds the error return to pgx.Rows.Close.
type pgxRows struct {
	pgx.Rows
}

func (r pgxRows) Close() error {
	r.Rows.Close()

	return nil
}

type pgxResult pgconn.CommandTag

func (r pgxResult) RowsAffected() (int64, error) {
	return pgconn.CommandTag(r).RowsAffected(), nil
}

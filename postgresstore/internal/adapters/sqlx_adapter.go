package adapters

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SQLXAdapter runs all statements on one sqlx pool, the read source is ignored.
type SQLXAdapter struct {
	db *sqlx.DB
}

func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

func (s *SQLXAdapter) Query(ctx context.Context, _ ReadSource, query string) (DBRows, error) {
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (s *SQLXAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return result, nil
}

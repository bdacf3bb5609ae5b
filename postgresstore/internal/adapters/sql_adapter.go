package adapters

import (
	"context"
	"database/sql"
)

// SQLAdapter runs all statements on one database/sql pool, the read source is ignored.
type SQLAdapter struct {
	db *sql.DB
}

func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

func (s *SQLAdapter) Query(ctx context.Context, _ ReadSource, query string) (DBRows, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (s *SQLAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return result, nil
}

package postgresstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const createSchemaTemplate = `CREATE TABLE IF NOT EXISTS %[1]s (
    aggregate_type TEXT NOT NULL,
    aggregate_id TEXT NOT NULL,
    sequence BIGINT NOT NULL,
    event_type TEXT NOT NULL,
    event_version TEXT NOT NULL,
    payload JSONB NOT NULL,
    metadata JSONB NOT NULL DEFAULT '{}',
    committed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (aggregate_type, aggregate_id, sequence)
);

CREATE TABLE IF NOT EXISTS %[2]s (
    view_type TEXT NOT NULL,
    view_id TEXT NOT NULL,
    version BIGINT NOT NULL,
    payload JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (view_type, view_id)
);`

const dropSchemaTemplate = `DROP TABLE IF EXISTS %[2]s;

DROP TABLE IF EXISTS %[1]s;`

// CreateSchemaSQL returns the DDL for the events and views tables, with the table names from the options.
func CreateSchemaSQL(options ...Option) (string, error) {
	s, err := newSettings(options)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(createSchemaTemplate, quoteIdentifier(s.eventTableName), quoteIdentifier(s.viewTableName)), nil
}

// DropSchemaSQL returns the DDL that drops the events and views tables.
func DropSchemaSQL(options ...Option) (string, error) {
	s, err := newSettings(options)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(dropSchemaTemplate, quoteIdentifier(s.eventTableName), quoteIdentifier(s.viewTableName)), nil
}

// CreateSchema creates the events and views tables if they do not exist.
func (d *Database) CreateSchema(ctx context.Context, options ...Option) error {
	ddl, err := CreateSchemaSQL(options...)
	if err != nil {
		return err
	}

	return d.execDDL(ctx, ddl)
}

// DropSchema drops the events and views tables.
func (d *Database) DropSchema(ctx context.Context, options ...Option) error {
	ddl, err := DropSchemaSQL(options...)
	if err != nil {
		return err
	}

	return d.execDDL(ctx, ddl)
}

// execDDL runs the statements of the ddl one by one.
func (d *Database) execDDL(ctx context.Context, ddl string) error {
	for _, statement := range strings.Split(ddl, ";\n\n") {
		if _, err := d.db.Exec(ctx, strings.TrimSuffix(statement, ";")); err != nil {
			return errors.Join(ErrExecutingSchemaFailed, err)
		}
	}

	return nil
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

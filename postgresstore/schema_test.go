package postgresstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/cqrs-es-go/postgresstore"
)

func Test_CreateSchemaSQL_ShouldQuoteConfiguredTableNames(t *testing.T) {
	ddl, err := postgresstore.CreateSchemaSQL(
		postgresstore.WithEventTableName("bank_events"),
		postgresstore.WithViewTableName(`odd"name`),
	)

	require.NoError(t, err)
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "bank_events" (`)
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "odd""name" (`)
	assert.Contains(t, ddl, "PRIMARY KEY (aggregate_type, aggregate_id, sequence)")
	assert.Contains(t, ddl, "PRIMARY KEY (view_type, view_id)")
}

func Test_DropSchemaSQL_ShouldDropViewsFirst(t *testing.T) {
	ddl, err := postgresstore.DropSchemaSQL()

	require.NoError(t, err)
	assert.Equal(t, "DROP TABLE IF EXISTS \"views\";\n\nDROP TABLE IF EXISTS \"events\";", ddl)
}

func Test_SchemaSQL_ShouldRejectEmptyTableNames(t *testing.T) {
	_, err := postgresstore.CreateSchemaSQL(postgresstore.WithEventTableName(""))
	assert.ErrorIs(t, err, postgresstore.ErrEmptyTableNameSupplied)

	_, err = postgresstore.DropSchemaSQL(postgresstore.WithViewTableName(""))
	assert.ErrorIs(t, err, postgresstore.ErrEmptyTableNameSupplied)
}

func Test_CreateSchema_ShouldExecuteEachStatement(t *testing.T) {
	// setup
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	database, err := postgresstore.NewDatabaseFromSQLDB(db)
	require.NoError(t, err)

	// arrange
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "events"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "views"`).WillReturnResult(sqlmock.NewResult(0, 0))

	// act
	err = database.CreateSchema(context.Background())

	// assert
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_DropSchema_ShouldStopAtFirstFailure(t *testing.T) {
	// setup
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	database, err := postgresstore.NewDatabaseFromSQLDB(db)
	require.NoError(t, err)
	cause := errors.New("permission denied")

	// arrange
	mock.ExpectExec(`DROP TABLE IF EXISTS "views"`).WillReturnError(cause)

	// act
	err = database.DropSchema(context.Background())

	// assert
	assert.ErrorIs(t, err, postgresstore.ErrExecutingSchemaFailed)
	assert.ErrorIs(t, err, cause)
	assert.NoError(t, mock.ExpectationsWereMet())
}

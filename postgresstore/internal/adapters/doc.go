// Package adapters hides pgxpool.Pool, sql.DB and sqlx.DB behind DBAdapter.
//
// *sql.Rows, *sqlx.Rows and sql.Result satisfy DBRows and DBResult as they are, only pgx needs wrapping.
// Queries name their ReadSource: the stores read an aggregate or a view from the primary when they
// are about to write it, so the optimistic checks never compare against a lagging replica.
package adapters

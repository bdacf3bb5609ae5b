// Package postgresstore implements the cqrs event store and view repository contracts on Postgres.
//
// Events of all aggregate types share one table, keyed by aggregate type, aggregate id and sequence.
// Commits are optimistic: the insert is guarded by a CTE that compares the stream's current
// max sequence with the sequence the aggregate was loaded at, and the primary key catches
// writers that race past the guard. Both cases surface as cqrs.ErrConcurrencyConflict.
//
// All SQL is built with goqu and runs on a pgx pool, a database/sql DB or a sqlx DB.
package postgresstore

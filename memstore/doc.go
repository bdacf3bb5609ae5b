// Package memstore provides the in-memory reference implementation of the cqrs event store
// and view repository contracts.
//
// It is the zero-configuration default of the cqrstest harness and is safe for concurrent use,
// but keeps everything in process memory and is intended for tests, demos and prototyping.
package memstore

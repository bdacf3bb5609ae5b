// Package redisview implements cqrs.ViewRepository on Redis.
//
// Every view is one hash with a version field and a JSON payload field. Updates run in a
// Lua script that compares the stored version with the expected one, so concurrent
// queries updating the same view cannot overwrite each other.
package redisview

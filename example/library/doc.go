// Package library is a small lending domain built on the cqrs packages.
//
// A BookCopy aggregate is added to circulation, lent to readers, returned and removed again.
// The LendingHistoryView keeps the lendings of one copy, and the RemoveDamagedCopyReactor
// takes a copy out of circulation when it comes back damaged.
package library

// Package cqrstest assembles given/when/then test scenarios for one aggregate type.
//
// A harness is built step by step, every step returns a new value:
//
//	harness := cqrstest.With[BookCopy, Command, Event](services).
//		UsingMemStore().
//		AndQuery(lendingHistory).
//		AndReactor(removeDamaged)
//
//	harness.Given(BookCopyAddedToCirculation{...}).
//		When(LendBookCopyToReader{...}).
//		ThenExpectEvents(t, BookCopyLentToReader{...})
//
// The store binding fixes the aggregate context type of the reactors. It must be chosen before the
// first reactor is added; rebinding it afterwards panics. Adding a reactor without any binding
// keeps the default in-memory store.
package cqrstest

package cqrstest

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

// ResultValidator holds the result of one step for assertions.
type ResultValidator[E cqrs.Event] struct {
	outcome  cqrs.Outcome[E]
	err      error
	setupErr error
}

// ThenExpectEvents asserts that the step succeeded and committed exactly the events.
func (v *ResultValidator[E]) ThenExpectEvents(t testing.TB, expected ...E) *ResultValidator[E] {
	t.Helper()
	v.requireSetup(t)

	require.NoError(t, v.err)
	assert.Equal(t, normalize(expected), cqrs.Payloads(v.outcome.Committed))

	return v
}

// ThenExpectFollowUpEvents asserts that the step succeeded and the reactors emitted exactly the events.
func (v *ResultValidator[E]) ThenExpectFollowUpEvents(t testing.TB, expected ...E) *ResultValidator[E] {
	t.Helper()
	v.requireSetup(t)

	require.NoError(t, v.err)
	assert.Equal(t, normalize(expected), cqrs.Payloads(v.outcome.FollowUps))

	return v
}

// ThenExpectError asserts that the step failed with an error matching target.
func (v *ResultValidator[E]) ThenExpectError(t testing.TB, target error) *ResultValidator[E] {
	t.Helper()
	v.requireSetup(t)

	assert.ErrorIs(t, v.err, target)

	return v
}

// ThenExpectErrorMessage asserts that the step failed with an error with the message.
func (v *ResultValidator[E]) ThenExpectErrorMessage(t testing.TB, message string) *ResultValidator[E] {
	t.Helper()
	v.requireSetup(t)

	assert.EqualError(t, v.err, message)

	return v
}

// Inspect passes the outcome and the error of the step to fn for custom assertions.
func (v *ResultValidator[E]) Inspect(fn func(outcome cqrs.Outcome[E], err error)) *ResultValidator[E] {
	fn(v.outcome, v.err)

	return v
}

// Err returns the error of the step.
func (v *ResultValidator[E]) Err() error {
	return v.err
}

// SetupErr returns the error that kept the step from running, e.g. a history that could not be seeded.
func (v *ResultValidator[E]) SetupErr() error {
	return v.setupErr
}

// Envelopes returns the committed envelopes of the step, command events first.
func (v *ResultValidator[E]) Envelopes() []cqrs.EventEnvelope[E] {
	return slices.Concat(v.outcome.Committed, v.outcome.FollowUps)
}

func (v *ResultValidator[E]) requireSetup(t testing.TB) {
	t.Helper()

	require.NoError(t, v.setupErr)
}

// normalize keeps "no events expected" comparable with an empty payload list.
func normalize[E cqrs.Event](events []E) []E {
	if events == nil {
		return []E{}
	}

	return events
}

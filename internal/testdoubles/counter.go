package testdoubles

import (
	"context"
	"errors"
)

var (
	// ErrInvalidAmount is returned by the Counter for non-positive amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrCounterClosed is returned by the Counter for every command after it was closed.
	ErrCounterClosed = errors.New("counter is closed")
)

// CounterEvent is the event type of the Counter aggregate.
type CounterEvent interface {
	EventType() string
	EventVersion() string
}

// Incremented is emitted when the counter was incremented.
type Incremented struct {
	By int `json:"by"`
}

// EventType implements cqrs.Event.
func (Incremented) EventType() string { return "Incremented" }

// EventVersion implements cqrs.Event.
func (Incremented) EventVersion() string { return "1" }

// Decremented is emitted when the counter was decremented.
type Decremented struct {
	By int `json:"by"`
}

// EventType implements cqrs.Event.
func (Decremented) EventType() string { return "Decremented" }

// EventVersion implements cqrs.Event.
func (Decremented) EventVersion() string { return "1" }

// CounterClosed is emitted when the counter was closed.
type CounterClosed struct {
	Reason string `json:"reason"`
}

// EventType implements cqrs.Event.
func (CounterClosed) EventType() string { return "CounterClosed" }

// EventVersion implements cqrs.Event.
func (CounterClosed) EventVersion() string { return "1" }

// CounterCommand is the command type of the Counter aggregate.
type CounterCommand interface {
	isCounterCommand()
}

// Increment increments the counter.
type Increment struct{ By int }

// Decrement decrements the counter.
type Decrement struct{ By int }

// Close closes the counter.
type Close struct{ Reason string }

// Noop is accepted and produces no events.
type Noop struct{}

func (Increment) isCounterCommand() {}
func (Decrement) isCounterCommand() {}
func (Close) isCounterCommand()     {}
func (Noop) isCounterCommand()      {}

// CounterServices is the services handle of the Counter aggregate.
type CounterServices struct {
	Name string
}

// Counter is a minimal aggregate with value semantics.
type Counter struct {
	Value  int
	Closed bool
}

// AggregateType implements cqrs.EventSourced.
func (Counter) AggregateType() string {
	return "Counter"
}

// Apply implements cqrs.EventSourced.
func (c Counter) Apply(event CounterEvent) Counter {
	switch e := event.(type) {
	case Incremented:
		c.Value += e.By
	case Decremented:
		c.Value -= e.By
	case CounterClosed:
		c.Closed = true
	}

	return c
}

// Handle implements cqrs.Aggregate.
func (c Counter) Handle(_ context.Context, command CounterCommand, _ *CounterServices) ([]CounterEvent, error) {
	if c.Closed {
		return nil, ErrCounterClosed
	}

	switch cmd := command.(type) {
	case Increment:
		if cmd.By <= 0 {
			return nil, ErrInvalidAmount
		}

		return []CounterEvent{Incremented(cmd)}, nil

	case Decrement:
		if cmd.By <= 0 {
			return nil, ErrInvalidAmount
		}

		return []CounterEvent{Decremented(cmd)}, nil

	case Close:
		return []CounterEvent{CounterClosed(cmd)}, nil

	default:
		return nil, nil
	}
}

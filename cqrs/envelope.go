package cqrs

import (
	"maps"
)

// EventEnvelope wraps one committed event with its aggregate id, its sequence number and its metadata.
//
// Envelopes are values. Queries and reactors must not retain them beyond one dispatch call unless they copy them.
type EventEnvelope[E Event] struct {
	AggregateID string
	Sequence    uint
	Payload     E
	Metadata    Metadata
}

// BuildEventEnvelope creates a new EventEnvelope with a private copy of the metadata.
func BuildEventEnvelope[E Event](aggregateID string, sequence uint, payload E, metadata Metadata) EventEnvelope[E] {
	return EventEnvelope[E]{
		AggregateID: aggregateID,
		Sequence:    sequence,
		Payload:     payload,
		Metadata:    metadata.Clone(),
	}
}

// Payloads extracts the event payloads from envelopes, preserving their order.
func Payloads[E Event](envelopes []EventEnvelope[E]) []E {
	payloads := make([]E, 0, len(envelopes))

	for _, envelope := range envelopes {
		payloads = append(payloads, envelope.Payload)
	}

	return payloads
}

// Metadata is an opaque key/value mapping attached to every committed event.
type Metadata map[string]string

// Clone returns a copy of the metadata, an empty one for nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}

	return maps.Clone(m)
}

package postgresstore

import (
	"errors"
	"fmt"
	"reflect"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

// EventCodec converts event payloads to and from JSON.
type EventCodec[E cqrs.Event] interface {
	Encode(event E) ([]byte, error)
	Decode(eventType string, eventVersion string, payloadJSON []byte) (E, error)
}

// JSONCodec encodes events of one concrete type.
type JSONCodec[E cqrs.Event] struct{}

// Encode implements EventCodec.
func (JSONCodec[E]) Encode(event E) ([]byte, error) {
	return jsoniter.ConfigFastest.Marshal(event)
}

// Decode implements EventCodec.
func (JSONCodec[E]) Decode(_ string, _ string, payloadJSON []byte) (E, error) {
	var event E
	err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, &event)

	return event, err
}

// TypeRegistryCodec encodes events of an interface type E, decoding each row
// into the concrete type registered for its event type.
type TypeRegistryCodec[E cqrs.Event] struct {
	types map[string]reflect.Type
}

// NewTypeRegistryCodec creates a codec for the event types of the prototypes,
// which are zero values of the concrete event types, e.g. Incremented{}.
func NewTypeRegistryCodec[E cqrs.Event](prototypes ...E) *TypeRegistryCodec[E] {
	codec := &TypeRegistryCodec[E]{types: make(map[string]reflect.Type, len(prototypes))}

	for _, prototype := range prototypes {
		codec.types[prototype.EventType()] = reflect.TypeOf(prototype)
	}

	return codec
}

// Encode implements EventCodec.
func (c *TypeRegistryCodec[E]) Encode(event E) ([]byte, error) {
	return jsoniter.ConfigFastest.Marshal(event)
}

// Decode implements EventCodec.
func (c *TypeRegistryCodec[E]) Decode(eventType string, _ string, payloadJSON []byte) (E, error) {
	var zero E

	concreteType, ok := c.types[eventType]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	target := reflect.New(concreteType)
	if err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, target.Interface()); err != nil {
		return zero, err
	}

	event, ok := target.Elem().Interface().(E)
	if !ok {
		return zero, errors.Join(ErrDecodingEventFailed, fmt.Errorf("%s does not implement the event type", concreteType))
	}

	return event, nil
}

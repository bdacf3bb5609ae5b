package postgresstore

import (
	jsoniter "github.com/json-iterator/go"
)

// SerializedEvent is the row representation of one event, built on scalars so the store
// stays agnostic of the event types of the client code.
//
// While its properties are exported, it should only be constructed with BuildSerializedEvent.
type SerializedEvent struct {
	Sequence     uint
	EventType    string
	EventVersion string
	PayloadJSON  []byte
	MetadataJSON []byte
}

// BuildSerializedEvent is a factory method for SerializedEvent.
// Returns an error if payloadJSON or metadataJSON are not valid JSON.
func BuildSerializedEvent(
	sequence uint,
	eventType string,
	eventVersion string,
	payloadJSON []byte,
	metadataJSON []byte,
) (SerializedEvent, error) {

	if !jsoniter.ConfigFastest.Valid(payloadJSON) {
		return SerializedEvent{}, ErrInvalidPayloadJSON
	}

	if !jsoniter.ConfigFastest.Valid(metadataJSON) {
		return SerializedEvent{}, ErrInvalidMetadataJSON
	}

	return SerializedEvent{
		Sequence:     sequence,
		EventType:    eventType,
		EventVersion: eventVersion,
		PayloadJSON:  payloadJSON,
		MetadataJSON: metadataJSON,
	}, nil
}

package cqrs

import (
	"github.com/google/uuid"
)

// Metadata keys stamped by the Framework.
const (
	MetadataMessageID     = "message_id"
	MetadataCausationID   = "causation_id"
	MetadataCorrelationID = "correlation_id"
)

// MessageID represents a unique message identifier.
type MessageID = string

// CausationID represents the ID of the message that caused this event.
type CausationID = string

// CorrelationID represents the ID correlating all events of one step.
type CorrelationID = string

// WithCorrelation returns a copy of the metadata that carries a correlation id,
// generating one if the caller did not supply it.
func WithCorrelation(metadata Metadata) Metadata {
	stamped := metadata.Clone()

	if stamped[MetadataCorrelationID] == "" {
		stamped[MetadataCorrelationID] = uuid.NewString()
	}

	return stamped
}

// WithCausation returns a copy of the metadata with the causation id set.
func WithCausation(metadata Metadata, causationID CausationID) Metadata {
	stamped := metadata.Clone()
	stamped[MetadataCausationID] = causationID

	return stamped
}

// ForEvent returns a copy of the batch metadata with a fresh message id for one event.
// Event stores call it once per committed event.
func ForEvent(batchMetadata Metadata) Metadata {
	stamped := batchMetadata.Clone()
	stamped[MetadataMessageID] = uuid.NewString()

	return stamped
}

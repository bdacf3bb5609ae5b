package cqrs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

func Test_WithCorrelation_ShouldKeepSuppliedCorrelationID(t *testing.T) {
	// arrange
	supplied := cqrs.Metadata{cqrs.MetadataCorrelationID: "corr-1"}

	// act
	stamped := cqrs.WithCorrelation(supplied)

	// assert
	assert.Equal(t, "corr-1", stamped[cqrs.MetadataCorrelationID])
}

func Test_WithCorrelation_ShouldGenerateCorrelationID_WithoutTouchingInput(t *testing.T) {
	// arrange
	var supplied cqrs.Metadata

	// act
	stamped := cqrs.WithCorrelation(supplied)

	// assert
	assert.NotEmpty(t, stamped[cqrs.MetadataCorrelationID])
	assert.Nil(t, supplied)
}

func Test_ForEvent_ShouldGenerateDistinctMessageIDs(t *testing.T) {
	// arrange
	batch := cqrs.WithCausation(cqrs.Metadata{}, "cause-1")

	// act
	first := cqrs.ForEvent(batch)
	second := cqrs.ForEvent(batch)

	// assert
	assert.NotEqual(t, first[cqrs.MetadataMessageID], second[cqrs.MetadataMessageID])
	assert.Equal(t, "cause-1", first[cqrs.MetadataCausationID])
	assert.NotContains(t, batch, cqrs.MetadataMessageID)
}

func Test_BuildEventEnvelope_ShouldCopyMetadata(t *testing.T) {
	// arrange
	metadata := cqrs.Metadata{"k": "v"}

	// act
	envelope := cqrs.BuildEventEnvelope[testEvent]("id-1", 1, testEvent{}, metadata)
	metadata["k"] = "changed"

	// assert
	assert.Equal(t, "v", envelope.Metadata["k"])
}

type testEvent struct{}

func (testEvent) EventType() string    { return "TestEvent" }
func (testEvent) EventVersion() string { return "1" }

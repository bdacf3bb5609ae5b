package memstore

// AggregateContext is the read-only view on an aggregate as last persisted in a MemStore.
type AggregateContext[A any] struct {
	aggregateID string
	aggregate   A
	sequence    uint
}

// NewAggregateContext creates the context of an aggregate instance without history.
func NewAggregateContext[A any](aggregateID string) *AggregateContext[A] {
	return &AggregateContext[A]{aggregateID: aggregateID}
}

// AggregateID returns the id of the aggregate instance.
func (c *AggregateContext[A]) AggregateID() string {
	return c.aggregateID
}

// Aggregate returns the aggregate state after applying all loaded events.
func (c *AggregateContext[A]) Aggregate() A {
	return c.aggregate
}

// CurrentSequence returns the sequence number of the last loaded event, 0 for an empty stream.
func (c *AggregateContext[A]) CurrentSequence() uint {
	return c.sequence
}

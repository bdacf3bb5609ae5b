package postgresstore

// AggregateContext is the read-only view on an aggregate as last persisted in Postgres.
type AggregateContext[A any] struct {
	aggregateID string
	aggregate   A
	sequence    uint
}

// NewAggregateContext creates the context of an aggregate instance without history.
func NewAggregateContext[A any](aggregateID string) *AggregateContext[A] {
	return &AggregateContext[A]{aggregateID: aggregateID}
}

func (c *AggregateContext[A]) AggregateID() string {
	return c.aggregateID
}

func (c *AggregateContext[A]) Aggregate() A {
	return c.aggregate
}

func (c *AggregateContext[A]) CurrentSequence() uint {
	return c.sequence
}

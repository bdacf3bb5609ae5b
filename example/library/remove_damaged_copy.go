package library

import (
	"context"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

// RemoveDamagedCopyReactor removes a copy from circulation when it was returned damaged.
// It works with the aggregate context of any store.
type RemoveDamagedCopyReactor[AC cqrs.AggregateContext[BookCopy]] struct{}

// React implements cqrs.Reactor.
func (RemoveDamagedCopyReactor[AC]) React(
	_ context.Context,
	aggregateContext AC,
	_ string,
	_ *Services,
	events []cqrs.EventEnvelope[Event],
) ([]Event, error) {

	if !aggregateContext.Aggregate().InCirculation {
		return nil, nil
	}

	for _, envelope := range events {
		returned, ok := envelope.Payload.(BookCopyReturnedByReader)
		if !ok || !returned.Damaged {
			continue
		}

		return []Event{BookCopyRemovedFromCirculation{
			BookID:     returned.BookID,
			Reason:     removalReasonDamaged,
			OccurredAt: returned.OccurredAt,
		}}, nil
	}

	return nil, nil
}

package library

import (
	"github.com/AntonStoeckl/cqrs-es-go/postgresstore"
)

// NewEventCodec returns the codec that stores the BookCopy events in postgresstore.
func NewEventCodec() postgresstore.EventCodec[Event] {
	return postgresstore.NewTypeRegistryCodec[Event](
		BookCopyAddedToCirculation{},
		BookCopyLentToReader{},
		BookCopyReturnedByReader{},
		BookCopyRemovedFromCirculation{},
	)
}

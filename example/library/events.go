package library

import (
	"time"
)

const (
	BookCopyAddedToCirculationEventType     = "BookCopyAddedToCirculation"
	BookCopyLentToReaderEventType           = "BookCopyLentToReader"
	BookCopyReturnedByReaderEventType       = "BookCopyReturnedByReader"
	BookCopyRemovedFromCirculationEventType = "BookCopyRemovedFromCirculation"

	eventVersion1 = "1"
)

// Event is implemented by all events of the BookCopy aggregate.
type Event interface {
	EventType() string
	EventVersion() string
}

// BookCopyAddedToCirculation represents when a book copy is added to circulation.
type BookCopyAddedToCirculation struct {
	BookID     string    `json:"book_id"`
	ISBN       string    `json:"isbn"`
	Title      string    `json:"title"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookCopyLentToReader represents when a book copy is lent to a reader.
type BookCopyLentToReader struct {
	BookID     string    `json:"book_id"`
	ReaderID   string    `json:"reader_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookCopyReturnedByReader represents when a reader returns a book copy.
type BookCopyReturnedByReader struct {
	BookID     string    `json:"book_id"`
	ReaderID   string    `json:"reader_id"`
	Damaged    bool      `json:"damaged"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookCopyRemovedFromCirculation represents when a book copy is removed from circulation.
type BookCopyRemovedFromCirculation struct {
	BookID     string    `json:"book_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (BookCopyAddedToCirculation) EventType() string { return BookCopyAddedToCirculationEventType }
func (BookCopyLentToReader) EventType() string       { return BookCopyLentToReaderEventType }
func (BookCopyReturnedByReader) EventType() string   { return BookCopyReturnedByReaderEventType }
func (BookCopyRemovedFromCirculation) EventType() string {
	return BookCopyRemovedFromCirculationEventType
}

func (BookCopyAddedToCirculation) EventVersion() string     { return eventVersion1 }
func (BookCopyLentToReader) EventVersion() string           { return eventVersion1 }
func (BookCopyReturnedByReader) EventVersion() string       { return eventVersion1 }
func (BookCopyRemovedFromCirculation) EventVersion() string { return eventVersion1 }

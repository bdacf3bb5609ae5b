package library

import (
	"time"

	"github.com/google/uuid"
)

// Command is implemented by all commands of the BookCopy aggregate.
type Command interface {
	isCommand()
}

// AddBookCopyToCirculation adds a new copy. The title is looked up in the Catalog.
type AddBookCopyToCirculation struct {
	BookID     uuid.UUID
	ISBN       string
	OccurredAt time.Time
}

// LendBookCopyToReader lends the copy to a reader.
type LendBookCopyToReader struct {
	ReaderID   uuid.UUID
	OccurredAt time.Time
}

// ReturnBookCopyFromReader takes the copy back from the reader it is lent to.
type ReturnBookCopyFromReader struct {
	ReaderID   uuid.UUID
	Damaged    bool
	OccurredAt time.Time
}

// RemoveBookCopyFromCirculation removes the copy, it must not be lent.
type RemoveBookCopyFromCirculation struct {
	Reason     string
	OccurredAt time.Time
}

func (AddBookCopyToCirculation) isCommand()      {}
func (LendBookCopyToReader) isCommand()          {}
func (ReturnBookCopyFromReader) isCommand()      {}
func (RemoveBookCopyFromCirculation) isCommand() {}

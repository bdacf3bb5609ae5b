package library

import (
	"context"
	"errors"
)

const (
	aggregateType        = "BookCopy"
	removalReasonDamaged = "damaged"
)

var (
	ErrBookNotInCirculation    = errors.New("book is not in circulation")
	ErrBookAlreadyLent         = errors.New("book is already lent")
	ErrBookNotLent             = errors.New("book is not lent")
	ErrBookLentToAnotherReader = errors.New("book is lent to another reader")
	ErrBookStillLent           = errors.New("book must be returned before it is removed")
	ErrUnknownISBN             = errors.New("isbn is not in the catalog")
	ErrCatalogUnavailable      = errors.New("catalog lookup failed")
)

// BookCopy is the aggregate of one physical copy of a book.
type BookCopy struct {
	BookID        string
	Title         string
	InCirculation bool
	LentTo        string
	TimesLent     int
}

// AggregateType implements cqrs.EventSourced.
func (BookCopy) AggregateType() string {
	return aggregateType
}

// Apply implements cqrs.EventSourced.
func (b BookCopy) Apply(event Event) BookCopy {
	switch e := event.(type) {
	case BookCopyAddedToCirculation:
		b.BookID = e.BookID
		b.Title = e.Title
		b.InCirculation = true

	case BookCopyLentToReader:
		b.LentTo = e.ReaderID
		b.TimesLent++

	case BookCopyReturnedByReader:
		b.LentTo = ""

	case BookCopyRemovedFromCirculation:
		b.InCirculation = false
	}

	return b
}

// Handle implements cqrs.Aggregate.
//
// Adding a copy that is in circulation and lending it to the reader who has it are no-ops.
func (b BookCopy) Handle(ctx context.Context, command Command, services *Services) ([]Event, error) {
	switch c := command.(type) {
	case AddBookCopyToCirculation:
		return b.add(ctx, c, services)

	case LendBookCopyToReader:
		return b.lend(c)

	case ReturnBookCopyFromReader:
		return b.takeBack(c)

	case RemoveBookCopyFromCirculation:
		return b.remove(c)

	default:
		return nil, nil
	}
}

func (b BookCopy) add(ctx context.Context, c AddBookCopyToCirculation, services *Services) ([]Event, error) {
	if b.InCirculation {
		return nil, nil
	}

	title, found, err := services.Catalog.LookupTitle(ctx, c.ISBN)
	if err != nil {
		return nil, errors.Join(ErrCatalogUnavailable, err)
	}

	if !found {
		return nil, ErrUnknownISBN
	}

	return []Event{BookCopyAddedToCirculation{
		BookID:     c.BookID.String(),
		ISBN:       c.ISBN,
		Title:      title,
		OccurredAt: c.OccurredAt,
	}}, nil
}

func (b BookCopy) lend(c LendBookCopyToReader) ([]Event, error) {
	readerID := c.ReaderID.String()

	switch {
	case !b.InCirculation:
		return nil, ErrBookNotInCirculation
	case b.LentTo == readerID:
		return nil, nil
	case b.LentTo != "":
		return nil, ErrBookAlreadyLent
	}

	return []Event{BookCopyLentToReader{BookID: b.BookID, ReaderID: readerID, OccurredAt: c.OccurredAt}}, nil
}

func (b BookCopy) takeBack(c ReturnBookCopyFromReader) ([]Event, error) {
	readerID := c.ReaderID.String()

	switch {
	case b.LentTo == "":
		return nil, ErrBookNotLent
	case b.LentTo != readerID:
		return nil, ErrBookLentToAnotherReader
	}

	return []Event{BookCopyReturnedByReader{
		BookID:     b.BookID,
		ReaderID:   readerID,
		Damaged:    c.Damaged,
		OccurredAt: c.OccurredAt,
	}}, nil
}

func (b BookCopy) remove(c RemoveBookCopyFromCirculation) ([]Event, error) {
	switch {
	case !b.InCirculation:
		return nil, ErrBookNotInCirculation
	case b.LentTo != "":
		return nil, ErrBookStillLent
	}

	return []Event{BookCopyRemovedFromCirculation{BookID: b.BookID, Reason: c.Reason, OccurredAt: c.OccurredAt}}, nil
}

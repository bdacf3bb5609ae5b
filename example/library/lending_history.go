package library

import (
	"time"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

// LendingHistoryViewType is the view type under which the view is stored.
const LendingHistoryViewType = "lending_history"

// Lending is one lending of a copy, ReturnedAt is nil while the copy is out.
type Lending struct {
	ReaderID   string     `json:"reader_id"`
	LentAt     time.Time  `json:"lent_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Damaged    bool       `json:"damaged,omitempty"`
}

// LendingHistoryView lists all lendings of one copy.
type LendingHistoryView struct {
	BookID        string    `json:"book_id"`
	Title         string    `json:"title"`
	InCirculation bool      `json:"in_circulation"`
	Lendings      []Lending `json:"lendings"`
}

// Update implements cqrs.View.
func (v *LendingHistoryView) Update(envelope cqrs.EventEnvelope[Event]) {
	switch e := envelope.Payload.(type) {
	case BookCopyAddedToCirculation:
		v.BookID = e.BookID
		v.Title = e.Title
		v.InCirculation = true

	case BookCopyLentToReader:
		v.Lendings = append(v.Lendings, Lending{ReaderID: e.ReaderID, LentAt: e.OccurredAt})

	case BookCopyReturnedByReader:
		for i := len(v.Lendings) - 1; i >= 0; i-- {
			if v.Lendings[i].ReaderID == e.ReaderID && v.Lendings[i].ReturnedAt == nil {
				returnedAt := e.OccurredAt
				v.Lendings[i].ReturnedAt = &returnedAt
				v.Lendings[i].Damaged = e.Damaged

				break
			}
		}

	case BookCopyRemovedFromCirculation:
		v.InCirculation = false
	}
}

// CurrentReader returns the reader who has the copy, or "" if it is not lent.
func (v LendingHistoryView) CurrentReader() string {
	if len(v.Lendings) == 0 {
		return ""
	}

	last := v.Lendings[len(v.Lendings)-1]
	if last.ReturnedAt != nil {
		return ""
	}

	return last.ReaderID
}

// NewLendingHistoryQuery keeps the LendingHistoryView of every copy in the repository.
func NewLendingHistoryQuery(repository cqrs.ViewRepository[LendingHistoryView]) *cqrs.GenericQuery[Event, LendingHistoryView, *LendingHistoryView] {
	return cqrs.NewGenericQuery[Event, LendingHistoryView](repository)
}

package library

import (
	"context"
)

// Catalog looks up the titles of the books the library owns.
type Catalog interface {
	LookupTitle(ctx context.Context, isbn string) (title string, found bool, err error)
}

// StaticCatalog is a Catalog on a fixed ISBN to title map.
type StaticCatalog map[string]string

// LookupTitle implements Catalog.
func (c StaticCatalog) LookupTitle(_ context.Context, isbn string) (string, bool, error) {
	title, found := c[isbn]

	return title, found, nil
}

// Services is the services handle of the BookCopy aggregate.
type Services struct {
	Catalog Catalog
}

package document

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is the metadata of an uploaded file. Every document is owned by
// exactly one user; an order item may only reference documents owned by the
// ordering customer.
type Document struct {
	ID       string
	OwnerID  string
	FileName string
	FileType string
	FileSize int64
}

// Repository defines read operations for the document store.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Document, error)
}

package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarxemo/printhub/internal/domain/document"
)

const getDocumentByIDSQL = `SELECT id, owner_id, file_name, file_type, file_size
	FROM documents WHERE id = $1`

var _ document.Repository = (*DocumentRepository)(nil)

// DocumentRepository implements document.Repository backed by PostgreSQL.
type DocumentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository returns a DocumentRepository that uses the given pool.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// GetByID returns a single document by its identifier.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*document.Document, error) {
	var d document.Document
	err := r.pool.QueryRow(ctx, getDocumentByIDSQL, id).Scan(
		&d.ID, &d.OwnerID, &d.FileName, &d.FileType, &d.FileSize,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrNotFound
		}
		return nil, fmt.Errorf("getting document %q: %w", id, err)
	}
	return &d, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarxemo/printhub/internal/domain/shop"
)

const getShopByIDSQL = `SELECT id, owner_id, name, is_accepting_orders, latitude, longitude, commission_rate
	FROM shops WHERE id = $1`

var _ shop.Repository = (*ShopRepository)(nil)

// ShopRepository implements shop.Repository backed by PostgreSQL.
type ShopRepository struct {
	pool *pgxpool.Pool
}

// NewShopRepository returns a ShopRepository that uses the given pool.
func NewShopRepository(pool *pgxpool.Pool) *ShopRepository {
	return &ShopRepository{pool: pool}
}

// GetByID returns a single shop by its identifier.
func (r *ShopRepository) GetByID(ctx context.Context, id string) (*shop.Shop, error) {
	rows, err := r.pool.Query(ctx, getShopByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting shop %q: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanShop)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shop.ErrNotFound
		}
		return nil, fmt.Errorf("getting shop %q: %w", id, err)
	}
	return &s, nil
}

func scanShop(row pgx.CollectableRow) (shop.Shop, error) {
	var s shop.Shop
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.Name, &s.IsAcceptingOrders,
		&s.Latitude, &s.Longitude, &s.CommissionRate,
	)
	return s, err
}

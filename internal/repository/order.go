package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarxemo/printhub/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, customer_id, shop_id, status, total_price, commission_fee, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, document_id, config_snapshot, price, page_count)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderSQL = `SELECT id, customer_id, shop_id, status, total_price, commission_fee,
		estimated_completion_time, completed_at, created_at
		FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT id, order_id, document_id, config_snapshot, price, page_count
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, completed_at = $3 WHERE id = $1`

	listOrdersByCustomerSQL = `SELECT id, customer_id, shop_id, status, total_price, commission_fee,
		estimated_completion_time, completed_at, created_at
		FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	listOrdersByShopSQL = `SELECT id, customer_id, shop_id, status, total_price, commission_fee,
		estimated_completion_time, completed_at, created_at
		FROM orders WHERE shop_id = $1 ORDER BY created_at DESC`

	listOrdersByShopOwnerSQL = `SELECT o.id, o.customer_id, o.shop_id, o.status, o.total_price, o.commission_fee,
		o.estimated_completion_time, o.completed_at, o.created_at
		FROM orders o JOIN shops s ON s.id = o.shop_id
		WHERE s.owner_id = $1 ORDER BY o.created_at DESC`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists an order and all of its items inside a single
// transaction. The item inserts go through one batch; any failure rolls the
// whole order back so no partial state is ever visible.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.CustomerID, o.ShopID, string(o.Status),
		o.TotalPrice, o.CommissionFee, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	batch := &pgx.Batch{}
	for i := range o.Items {
		it := &o.Items[i]
		snapshot, err := json.Marshal(it.Config)
		if err != nil {
			return fmt.Errorf("marshaling config snapshot for item %q: %w", it.ID, err)
		}
		batch.Queue(insertOrderItemSQL,
			it.ID, o.ID, it.DocumentID, snapshot, it.Price, it.PageCount,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range o.Items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("creating items for order %q: %w", o.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing item batch for order %q: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns one order with its full item set.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	orders := []order.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// UpdateStatus persists the order's status and completion timestamp.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, o.ID, string(o.Status), o.CompletedAt)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// ListByCustomer returns a customer's orders, newest first, with items.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	return r.list(ctx, listOrdersByCustomerSQL, customerID)
}

// ListByShop returns a shop's orders, newest first, with items.
func (r *OrderRepository) ListByShop(ctx context.Context, shopID string) ([]order.Order, error) {
	return r.list(ctx, listOrdersByShopSQL, shopID)
}

// ListByShopOwner returns orders across every shop owned by a user.
func (r *OrderRepository) ListByShopOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	return r.list(ctx, listOrdersByShopOwnerSQL, ownerID)
}

func (r *OrderRepository) list(ctx context.Context, sql string, arg any) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items for every order in a single query and
// attaches them in place.
func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
	}

	rows, err := r.pool.Query(ctx, getOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("getting order items: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return fmt.Errorf("getting order items: %w", err)
	}
	for _, it := range items {
		if o, ok := index[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.ShopID, &status, &o.TotalPrice, &o.CommissionFee,
		&o.EstimatedCompletionTime, &o.CompletedAt, &o.CreatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.OrderItem, error) {
	var (
		it       order.OrderItem
		snapshot []byte
	)
	err := row.Scan(&it.ID, &it.OrderID, &it.DocumentID, &snapshot, &it.Price, &it.PageCount)
	if err != nil {
		return it, err
	}
	if err := json.Unmarshal(snapshot, &it.Config); err != nil {
		return it, fmt.Errorf("parsing config snapshot for item %q: %w", it.ID, err)
	}
	return it, nil
}

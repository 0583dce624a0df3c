package shop

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested shop does not exist.
	ErrNotFound = errors.New("shop not found")

	// ErrNotAcceptingOrders is returned when an order is placed against a
	// shop whose accepting-orders flag is off.
	ErrNotAcceptingOrders = errors.New("shop is not currently accepting orders")
)

// Shop is a print shop registered on the platform.
type Shop struct {
	ID                string
	OwnerID           string
	Name              string
	IsAcceptingOrders bool
	Latitude          float64
	Longitude         float64

	// CommissionRate is a per-shop override of the platform commission.
	// It is stored and surfaced but not consulted at order placement,
	// which always charges the flat platform rate.
	CommissionRate *decimal.Decimal
}

// Repository defines read operations for the shop directory.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Shop, error)
}

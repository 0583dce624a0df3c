package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is an order's lifecycle state. The usual progression is
// UPLOADED → ACCEPTED → PRINTING → READY → COMPLETED, with CANCELLED
// reachable from any non-terminal state. Only membership in the enumeration
// is enforced on transitions; there is no transition graph.
type Status string

const (
	StatusUploaded  Status = "UPLOADED"
	StatusAccepted  Status = "ACCEPTED"
	StatusPrinting  Status = "PRINTING"
	StatusReady     Status = "READY"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var statuses = map[Status]struct{}{
	StatusUploaded: {}, StatusAccepted: {}, StatusPrinting: {},
	StatusReady: {}, StatusCompleted: {}, StatusCancelled: {},
}

// Valid reports whether s is a member of the status enumeration.
func (s Status) Valid() bool {
	_, ok := statuses[s]
	return ok
}

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ConfigSnapshot is the point-in-time print configuration of an order item.
// It is stored for audit and reproducibility and never re-parsed to
// recompute the price.
type ConfigSnapshot struct {
	IsColor    bool   `json:"is_color"`
	PaperSize  string `json:"paper_size"`
	Binding    bool   `json:"binding"`
	Lamination bool   `json:"lamination"`
}

// OrderItem is one priced line of an order. Items are immutable once
// created; the order total is never recomputed from them.
type OrderItem struct {
	ID         string
	OrderID    string
	DocumentID string
	Config     ConfigSnapshot
	Price      decimal.Decimal
	PageCount  int
}

// Order is the aggregate of a customer's print job at one shop.
type Order struct {
	ID            string
	CustomerID    string
	ShopID        string
	Status        Status
	TotalPrice    decimal.Decimal
	CommissionFee decimal.Decimal

	EstimatedCompletionTime *time.Time
	CompletedAt             *time.Time
	CreatedAt               time.Time

	Items []OrderItem
}

// ItemInput describes one requested item when placing or estimating an
// order. PaperSize defaults to "A4" at the transport boundary.
type ItemInput struct {
	DocumentID   string
	PageCount    int
	IsColor      bool
	IsBinding    bool
	IsLamination bool
	PaperSize    string
}

// Repository defines persistence operations for orders.
//
// Create must persist the order and all of its items as a single atomic
// unit: a failure partway through leaves no rows behind, and a reader never
// observes an order without its full item set.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, o *Order) error
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	ListByShop(ctx context.Context, shopID string) ([]Order, error)
	ListByShopOwner(ctx context.Context, ownerID string) ([]Order, error)
}

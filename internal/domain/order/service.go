package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tarxemo/printhub/internal/domain/document"
	"github.com/tarxemo/printhub/internal/domain/shop"
	"github.com/tarxemo/printhub/internal/domain/user"
)

// commissionRate is the platform's flat cut of every order, applied at
// placement time. The per-shop commission override column is deliberately
// not consulted here.
var commissionRate = decimal.RequireFromString("0.05")

// Sentinel errors for order validation.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrEmptyItems      = errors.New("order requires at least one item")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrForbidden       = errors.New("permission denied")
)

// DocumentOwnershipError indicates an item references a document owned by
// someone other than the ordering customer.
type DocumentOwnershipError struct {
	DocumentID string
}

func (e *DocumentOwnershipError) Error() string {
	return fmt.Sprintf("document %s does not belong to the customer", e.DocumentID)
}

// InvalidPageCountError indicates an item has a non-positive page count.
type InvalidPageCountError struct {
	DocumentID string
}

func (e *InvalidPageCountError) Error() string {
	return fmt.Sprintf("page count must be at least 1 for document %s", e.DocumentID)
}

// Estimate is the result of pricing an order without placing it.
type Estimate struct {
	ItemPrices []decimal.Decimal
	Total      decimal.Decimal
}

// Service encapsulates order placement, status transitions, and the
// read-side order queries.
type Service struct {
	shops     shop.Repository
	documents document.Repository
	calc      *Calculator
	orders    Repository
	now       func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(
	shops shop.Repository,
	documents document.Repository,
	calc *Calculator,
	orders Repository,
) *Service {
	return &Service{
		shops:     shops,
		documents: documents,
		calc:      calc,
		orders:    orders,
		now:       time.Now,
	}
}

// PlaceOrder validates the shop and every item, prices the items, and
// commits the order plus all line items as one atomic unit. All validation
// happens before any mutation; any failure leaves zero rows behind.
//
// The shop's accepting-orders flag is read once and not locked: a shop
// closing between the check and the commit is an accepted benign race.
func (s *Service) PlaceOrder(ctx context.Context, customer *user.User, shopID string, items []ItemInput) (*Order, error) {
	if customer == nil {
		return nil, ErrUnauthenticated
	}
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	sh, err := s.shops.GetByID(ctx, shopID)
	if err != nil {
		return nil, errors.Wrap(err, "get shop")
	}
	if !sh.IsAcceptingOrders {
		return nil, shop.ErrNotAcceptingOrders
	}

	orderID := uuid.New().String()
	total := decimal.Zero
	orderItems := make([]OrderItem, 0, len(items))

	for _, in := range items {
		if in.PageCount < 1 {
			return nil, &InvalidPageCountError{DocumentID: in.DocumentID}
		}

		doc, err := s.documents.GetByID(ctx, in.DocumentID)
		if err != nil {
			return nil, errors.Wrap(err, "get document")
		}
		if doc.OwnerID != customer.ID {
			return nil, &DocumentOwnershipError{DocumentID: doc.ID}
		}

		price, err := s.calc.Price(ctx, shopID, in, customer.Subscription)
		if err != nil {
			return nil, errors.Wrap(err, "price item")
		}

		total = total.Add(price)
		orderItems = append(orderItems, OrderItem{
			ID:         uuid.New().String(),
			OrderID:    orderID,
			DocumentID: doc.ID,
			Price:      price,
			PageCount:  in.PageCount,
			Config: ConfigSnapshot{
				IsColor:    in.IsColor,
				PaperSize:  in.PaperSize,
				Binding:    in.IsBinding,
				Lamination: in.IsLamination,
			},
		})
	}

	o := &Order{
		ID:            orderID,
		CustomerID:    customer.ID,
		ShopID:        shopID,
		Status:        StatusUploaded,
		TotalPrice:    total,
		CommissionFee: total.Mul(commissionRate).Round(2),
		CreatedAt:     s.now(),
		Items:         orderItems,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// UpdateStatus transitions an order to a new status. Only the owner of the
// order's shop may do this; any enumeration member is accepted as a target
// regardless of the current status. Transitioning to COMPLETED records the
// completion time; no other status touches timestamps.
func (s *Service) UpdateStatus(ctx context.Context, actor *user.User, orderID string, status Status) (*Order, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}

	sh, err := s.shops.GetByID(ctx, o.ShopID)
	if err != nil {
		return nil, errors.Wrap(err, "get shop")
	}
	if sh.OwnerID != actor.ID {
		return nil, ErrForbidden
	}

	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	o.Status = status
	if status == StatusCompleted {
		now := s.now()
		o.CompletedAt = &now
	}

	if err := s.orders.UpdateStatus(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	return o, nil
}

// Get returns one order with its items. Only the ordering customer and the
// shop's owner may view it.
func (s *Service) Get(ctx context.Context, actor *user.User, orderID string) (*Order, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if o.CustomerID == actor.ID {
		return o, nil
	}

	sh, err := s.shops.GetByID(ctx, o.ShopID)
	if err != nil {
		return nil, errors.Wrap(err, "get shop")
	}
	if sh.OwnerID != actor.ID {
		return nil, ErrForbidden
	}
	return o, nil
}

// ListForCustomer returns the actor's own orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, actor *user.User) ([]Order, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	return s.orders.ListByCustomer(ctx, actor.ID)
}

// ListForShop returns a shop's orders; the actor must own the shop.
func (s *Service) ListForShop(ctx context.Context, actor *user.User, shopID string) ([]Order, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	sh, err := s.shops.GetByID(ctx, shopID)
	if err != nil {
		return nil, errors.Wrap(err, "get shop")
	}
	if sh.OwnerID != actor.ID {
		return nil, ErrForbidden
	}
	return s.orders.ListByShop(ctx, shopID)
}

// ListForOwner returns orders across every shop the actor owns.
func (s *Service) ListForOwner(ctx context.Context, actor *user.User) ([]Order, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	return s.orders.ListByShopOwner(ctx, actor.ID)
}

// EstimateOrder prices the items against a shop without persisting
// anything. No subscription discount applies since there is no customer
// context; closed shops can still be estimated against.
func (s *Service) EstimateOrder(ctx context.Context, shopID string, items []ItemInput) (*Estimate, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	if _, err := s.shops.GetByID(ctx, shopID); err != nil {
		return nil, errors.Wrap(err, "get shop")
	}

	est := &Estimate{
		ItemPrices: make([]decimal.Decimal, 0, len(items)),
		Total:      decimal.Zero,
	}
	for _, in := range items {
		if in.PageCount < 1 {
			return nil, &InvalidPageCountError{DocumentID: in.DocumentID}
		}
		price, err := s.calc.Price(ctx, shopID, in, user.SubscriptionNone)
		if err != nil {
			return nil, errors.Wrap(err, "price item")
		}
		est.ItemPrices = append(est.ItemPrices, price)
		est.Total = est.Total.Add(price)
	}
	return est, nil
}

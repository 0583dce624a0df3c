// Package handler exposes the order engine over HTTP. Handlers are thin:
// decode the request, delegate to the domain service, map the result or the
// domain error back to JSON.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tarxemo/printhub/internal/domain/document"
	"github.com/tarxemo/printhub/internal/domain/order"
	"github.com/tarxemo/printhub/internal/domain/shop"
	"github.com/tarxemo/printhub/internal/domain/user"
)

// defaultPaperSize is applied when an item omits its paper size.
const defaultPaperSize = "A4"

// OrderService is the surface of the order engine the HTTP layer needs.
type OrderService interface {
	PlaceOrder(ctx context.Context, customer *user.User, shopID string, items []order.ItemInput) (*order.Order, error)
	UpdateStatus(ctx context.Context, actor *user.User, orderID string, status order.Status) (*order.Order, error)
	Get(ctx context.Context, actor *user.User, orderID string) (*order.Order, error)
	ListForCustomer(ctx context.Context, actor *user.User) ([]order.Order, error)
	ListForShop(ctx context.Context, actor *user.User, shopID string) ([]order.Order, error)
	ListForOwner(ctx context.Context, actor *user.User) ([]order.Order, error)
	EstimateOrder(ctx context.Context, shopID string, items []order.ItemInput) (*order.Estimate, error)
}

// Handler serves the order API endpoints.
type Handler struct {
	orders OrderService
}

// NewHandler constructs a Handler over the given order service.
func NewHandler(orders OrderService) *Handler {
	return &Handler{orders: orders}
}

// Register mounts all API routes on the mux. Every route is wrapped with
// the given authentication middleware.
func (h *Handler) Register(mux *http.ServeMux, authn func(http.Handler) http.Handler) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authn(fn))
	}

	route("POST /api/orders", h.createOrder)
	route("POST /api/orders/estimate", h.estimateOrder)
	route("GET /api/orders", h.listMyOrders)
	route("GET /api/orders/{id}", h.getOrder)
	route("PATCH /api/orders/{id}/status", h.updateOrderStatus)
	route("GET /api/shops/{id}/orders", h.listShopOrders)
	route("GET /api/me/shop-orders", h.listOwnerOrders)
}

// --- Wire types ---

type itemInput struct {
	DocumentID   string `json:"document_id"`
	PageCount    int    `json:"page_count"`
	IsColor      bool   `json:"is_color"`
	IsBinding    bool   `json:"is_binding"`
	IsLamination bool   `json:"is_lamination"`
	PaperSize    string `json:"paper_size"`
}

func (in itemInput) toDomain() order.ItemInput {
	size := in.PaperSize
	if size == "" {
		size = defaultPaperSize
	}
	return order.ItemInput{
		DocumentID:   in.DocumentID,
		PageCount:    in.PageCount,
		IsColor:      in.IsColor,
		IsBinding:    in.IsBinding,
		IsLamination: in.IsLamination,
		PaperSize:    size,
	}
}

type orderItemResponse struct {
	ID         string               `json:"id"`
	DocumentID string               `json:"document_id"`
	Config     order.ConfigSnapshot `json:"config_snapshot"`
	Price      decimal.Decimal      `json:"price"`
	PageCount  int                  `json:"page_count"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	CustomerID    string              `json:"customer_id"`
	ShopID        string              `json:"shop_id"`
	Status        string              `json:"status"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
	CommissionFee decimal.Decimal     `json:"commission_fee"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	Items         []orderItemResponse `json:"items"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ID:         it.ID,
			DocumentID: it.DocumentID,
			Config:     it.Config,
			Price:      it.Price,
			PageCount:  it.PageCount,
		}
	}
	return orderResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		ShopID:        o.ShopID,
		Status:        string(o.Status),
		TotalPrice:    o.TotalPrice,
		CommissionFee: o.CommissionFee,
		CompletedAt:   o.CompletedAt,
		CreatedAt:     o.CreatedAt,
		Items:         items,
	}
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// --- JSON helpers ---

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}

// respondError maps a domain error to its HTTP status. Unexpected errors
// are logged and surfaced as an opaque 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		message = "internal error"
	}
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

func errorStatus(err error) int {
	var (
		ownershipErr *order.DocumentOwnershipError
		pageCountErr *order.InvalidPageCountError
	)
	switch {
	case errors.Is(err, order.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, order.ErrForbidden), errors.As(err, &ownershipErr):
		return http.StatusForbidden
	case errors.Is(err, shop.ErrNotFound),
		errors.Is(err, document.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shop.ErrNotAcceptingOrders):
		return http.StatusConflict
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidStatus),
		errors.As(err, &pageCountErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

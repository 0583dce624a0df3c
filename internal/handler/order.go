package handler

import (
	"net/http"

	"github.com/tarxemo/printhub/internal/domain/order"
)

type createOrderRequest struct {
	ShopID string      `json:"shop_id"`
	Items  []itemInput `json:"items"`
}

func toItemInputs(items []itemInput) []order.ItemInput {
	out := make([]order.ItemInput, len(items))
	for i, in := range items {
		out[i] = in.toDomain()
	}
	return out
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid request body",
		})
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), UserFromContext(r.Context()), req.ShopID, toItemInputs(req.Items))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

type estimateRequest struct {
	ShopID string      `json:"shop_id"`
	Items  []itemInput `json:"items"`
}

type estimateResponse struct {
	ItemPrices []string `json:"item_prices"`
	Total      string   `json:"total"`
}

// estimateOrder prices a prospective order without persisting anything.
// Estimates never apply subscription discounts.
func (h *Handler) estimateOrder(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid request body",
		})
		return
	}

	est, err := h.orders.EstimateOrder(r.Context(), req.ShopID, toItemInputs(req.Items))
	if err != nil {
		respondError(w, r, err)
		return
	}

	prices := make([]string, len(est.ItemPrices))
	for i, p := range est.ItemPrices {
		prices[i] = p.StringFixed(2)
	}
	respondJSON(w, http.StatusOK, estimateResponse{
		ItemPrices: prices,
		Total:      est.Total.StringFixed(2),
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid request body",
		})
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), UserFromContext(r.Context()), r.PathValue("id"), order.Status(req.Status))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), UserFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListForCustomer(r.Context(), UserFromContext(r.Context()))
	h.respondOrderList(w, r, orders, err)
}

func (h *Handler) listShopOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListForShop(r.Context(), UserFromContext(r.Context()), r.PathValue("id"))
	h.respondOrderList(w, r, orders, err)
}

func (h *Handler) listOwnerOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListForOwner(r.Context(), UserFromContext(r.Context()))
	h.respondOrderList(w, r, orders, err)
}

func (h *Handler) respondOrderList(w http.ResponseWriter, r *http.Request, orders []order.Order, err error) {
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	respondJSON(w, http.StatusOK, out)
}

package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarxemo/printhub/internal/domain/catalog"
	"github.com/tarxemo/printhub/internal/domain/document"
	"github.com/tarxemo/printhub/internal/domain/shop"
	"github.com/tarxemo/printhub/internal/domain/user"
)

// --- Mock implementations ---

type mockShopRepo struct {
	byID map[string]*shop.Shop
}

func (m *mockShopRepo) GetByID(_ context.Context, id string) (*shop.Shop, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, shop.ErrNotFound
	}
	return s, nil
}

type mockDocumentRepo struct {
	byID map[string]*document.Document
}

func (m *mockDocumentRepo) GetByID(_ context.Context, id string) (*document.Document, error) {
	d, ok := m.byID[id]
	if !ok {
		return nil, document.ErrNotFound
	}
	return d, nil
}

type mockOrderRepo struct {
	byID    map[string]*Order
	created *Order
	updated *Order

	listedByCustomer string
	listedByShop     string
	listedByOwner    string
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.created = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, o *Order) error {
	m.updated = o
	return nil
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, customerID string) ([]Order, error) {
	m.listedByCustomer = customerID
	return nil, nil
}

func (m *mockOrderRepo) ListByShop(_ context.Context, shopID string) ([]Order, error) {
	m.listedByShop = shopID
	return nil, nil
}

func (m *mockOrderRepo) ListByShopOwner(_ context.Context, ownerID string) ([]Order, error) {
	m.listedByOwner = ownerID
	return nil, nil
}

// --- Helpers ---

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	orders *mockOrderRepo
}

func newFixture(shops map[string]*shop.Shop, docs map[string]*document.Document, existing map[string]*Order) *fixture {
	calc := newTestCalculator(map[string]*catalog.PricingRule{
		"shop-1/PRINTING_BW": bwRule("shop-1", "1.00", nil),
	}, nil)

	orders := &mockOrderRepo{byID: existing}
	svc := NewService(&mockShopRepo{byID: shops}, &mockDocumentRepo{byID: docs}, calc, orders)
	svc.now = func() time.Time { return testNow }
	return &fixture{svc: svc, orders: orders}
}

func openShop() map[string]*shop.Shop {
	return map[string]*shop.Shop{
		"shop-1": {ID: "shop-1", OwnerID: "owner-1", Name: "Campus Copy", IsAcceptingOrders: true},
	}
}

func customerDocs() map[string]*document.Document {
	return map[string]*document.Document{
		"doc-1": {ID: "doc-1", OwnerID: "cust-1", FileName: "thesis.pdf"},
		"doc-2": {ID: "doc-2", OwnerID: "cust-1", FileName: "notes.pdf"},
	}
}

func customer() *user.User {
	return &user.User{ID: "cust-1", Role: user.RoleCustomer, Subscription: user.SubscriptionFree}
}

func owner() *user.User {
	return &user.User{ID: "owner-1", Role: user.RoleShopOwner, Subscription: user.SubscriptionFree}
}

// --- Tests ---

func TestPlaceOrder_Unauthenticated(t *testing.T) {
	f := newFixture(openShop(), customerDocs(), nil)

	_, err := f.svc.PlaceOrder(context.Background(), nil, "shop-1", []ItemInput{
		{DocumentID: "doc-1", PageCount: 10, PaperSize: "A4"},
	})
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	f := newFixture(openShop(), customerDocs(), nil)

	_, err := f.svc.PlaceOrder(context.Background(), customer(), "shop-1", nil)
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlaceOrder_ShopNotFound(t *testing.T) {
	f := newFixture(nil, customerDocs(), nil)

	_, err := f.svc.PlaceOrder(context.Background(), customer(), "shop-1", []ItemInput{
		{DocumentID: "doc-1", PageCount: 10, PaperSize: "A4"},
	})
	require.ErrorIs(t, err, shop.ErrNotFound)
}

func TestPlaceOrder_ShopNotAccepting(t *testing.T) {
	shops := openShop()
	shops["shop-1"].IsAcceptingOrders = false
	f := newFixture(shops, customerDocs(), nil)

	_, err := f.svc.PlaceOrder(context.Background(), customer(), "shop-1", []ItemInput{
		{DocumentID: "doc-1", PageCount: 10, PaperSize: "A4"},
	})
	require.ErrorIs(t, err, shop.ErrNotAcceptingOrders)
	assert.Nil(t, f.orders.created, "no order may be persisted for a closed shop")
}

func TestPlaceOrder_InvalidPageCount(t *testing.T) {
	f := newFixture(openShop(), customerDocs(), nil)

	_, err := f.svc.PlaceOrder(context.Background(), customer(), "shop-1", []ItemInput{
		{DocumentID: "doc-1", PageCount: 0, PaperSize: "A4"},
	})

	var pcErr *InvalidPageCountError
	require.ErrorAs(t, err, &pcErr)
	assert.Equal(t, "doc-1", pcErr.DocumentID)
	assert.Nil(t, f.orders.created)
}

func TestPlaceOrder_DocumentNotFound(t *testing.T) {
	f := newFixture(openShop(), customerDocs(), nil)

	_, err := f.svc.PlaceOrder(context.Background(), customer(), "shop-1", []ItemInput{
		{DocumentID: "missing", PageCount: 10, PaperSize: "A4"},
	})
	require.ErrorIs(t, err, document.ErrNotFound)
}

func TestPlaceOrder_ForeignDocumentRejectsWholeOrder(t *testing.T) {
	docs := customerDocs()
	docs["doc-2"].OwnerID = "someone-else"
	f := newFixture(openShop(), docs, nil)

	_, err := f.svc.PlaceOrder(context.Background(), customer(), "shop-1", []ItemInput{
		{DocumentID: "doc-1", PageCount: 10, PaperSize: "A4"},
		{DocumentID: "doc-2", PageCount: 5, PaperSize: "A4"},
	})

	var ownErr *DocumentOwnershipError
	require.ErrorAs(t, err, &ownErr)
	assert.Equal(t, "doc-2", ownErr.DocumentID)
	assert.Nil(t, f.orders.created, "a bad item must leave no partial order behind")
}

func TestPlaceOrder_TotalsAndCommission(t *testing.T) {
	f := newFixture(openShop(), customerDocs(), nil)

	o, err := f.svc.PlaceOrder(context.Background(), customer(), "shop-1", []ItemInput{
		{DocumentID: "doc-1", PageCount: 10, PaperSize: "A4"},
		{DocumentID: "doc-2", PageCount: 5, PaperSize: "A4"},
	})
	require.NoError(t, err)
	require.NotNil(t, f.orders.created)

	assert.Equal(t, StatusUploaded, o.Status)
	assert.Equal(t, "cust-1", o.CustomerID)
	assert.Equal(t, testNow, o.CreatedAt)
	require.Len(t, o.Items, 2)

	// 10 + 5 pages at 1.00/page.
	assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("15.00")), "total %s", o.TotalPrice)
	assert.True(t, o.CommissionFee.Equal(decimal.RequireFromString("0.75")), "commission %s", o.CommissionFee)

	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Price)
		assert.Equal(t, o.ID, it.OrderID)
	}
	assert.True(t, sum.Equal(o.TotalPrice), "total must equal the item sum")
}

func TestPlaceOrder_SnapshotsItemConfig(t *testing.T) {
	f := newFixture(openShop(), customerDocs(), nil)

	o, err := f.svc.PlaceOrder(context.Background(), customer(), "shop-1", []ItemInput{
		{DocumentID: "doc-1", PageCount: 10, PaperSize: "A3", IsBinding: true},
	})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)

	cfg := o.Items[0].Config
	assert.False(t, cfg.IsColor)
	assert.Equal(t, "A3", cfg.PaperSize)
	assert.True(t, cfg.Binding)
	assert.False(t, cfg.Lamination)
}

func TestUpdateStatus_CompletedRecordsTimestamp(t *testing.T) {
	existing := map[string]*Order{
		"o1": {ID: "o1", CustomerID: "cust-1", ShopID: "shop-1", Status: StatusReady},
	}
	f := newFixture(openShop(), nil, existing)

	o, err := f.svc.UpdateStatus(context.Background(), owner(), "o1", StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, o.Status)
	require.NotNil(t, o.CompletedAt)
	assert.Equal(t, testNow, *o.CompletedAt)
	assert.Equal(t, o, f.orders.updated)
}

func TestUpdateStatus_OtherStatusesLeaveTimestampEmpty(t *testing.T) {
	existing := map[string]*Order{
		"o1": {ID: "o1", CustomerID: "cust-1", ShopID: "shop-1", Status: StatusUploaded},
	}
	f := newFixture(openShop(), nil, existing)

	o, err := f.svc.UpdateStatus(context.Background(), owner(), "o1", StatusPrinting)
	require.NoError(t, err)
	assert.Equal(t, StatusPrinting, o.Status)
	assert.Nil(t, o.CompletedAt)
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	existing := map[string]*Order{
		"o1": {ID: "o1", CustomerID: "cust-1", ShopID: "shop-1", Status: StatusUploaded},
	}
	f := newFixture(openShop(), nil, existing)

	_, err := f.svc.UpdateStatus(context.Background(), owner(), "o1", Status("SHIPPED"))
	require.ErrorIs(t, err, ErrInvalidStatus)
	assert.Nil(t, f.orders.updated)
}

func TestUpdateStatus_OnlyShopOwner(t *testing.T) {
	existing := map[string]*Order{
		"o1": {ID: "o1", CustomerID: "cust-1", ShopID: "shop-1", Status: StatusUploaded},
	}
	f := newFixture(openShop(), nil, existing)

	_, err := f.svc.UpdateStatus(context.Background(), customer(), "o1", StatusPrinting)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateStatus_OrderNotFound(t *testing.T) {
	f := newFixture(openShop(), nil, nil)

	_, err := f.svc.UpdateStatus(context.Background(), owner(), "missing", StatusPrinting)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGet_CustomerAndOwnerMayView(t *testing.T) {
	existing := map[string]*Order{
		"o1": {ID: "o1", CustomerID: "cust-1", ShopID: "shop-1", Status: StatusUploaded},
	}
	f := newFixture(openShop(), nil, existing)

	o, err := f.svc.Get(context.Background(), customer(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)

	o, err = f.svc.Get(context.Background(), owner(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
}

func TestGet_StrangerForbidden(t *testing.T) {
	existing := map[string]*Order{
		"o1": {ID: "o1", CustomerID: "cust-1", ShopID: "shop-1", Status: StatusUploaded},
	}
	f := newFixture(openShop(), nil, existing)

	stranger := &user.User{ID: "stranger", Role: user.RoleCustomer}
	_, err := f.svc.Get(context.Background(), stranger, "o1")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestListForShop_OnlyOwner(t *testing.T) {
	f := newFixture(openShop(), nil, nil)

	_, err := f.svc.ListForShop(context.Background(), customer(), "shop-1")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.ListForShop(context.Background(), owner(), "shop-1")
	require.NoError(t, err)
	assert.Equal(t, "shop-1", f.orders.listedByShop)
}

func TestListForCustomer_UsesActorID(t *testing.T) {
	f := newFixture(openShop(), nil, nil)

	_, err := f.svc.ListForCustomer(context.Background(), customer())
	require.NoError(t, err)
	assert.Equal(t, "cust-1", f.orders.listedByCustomer)
}

func TestListForOwner_UsesActorID(t *testing.T) {
	f := newFixture(openShop(), nil, nil)

	_, err := f.svc.ListForOwner(context.Background(), owner())
	require.NoError(t, err)
	assert.Equal(t, "owner-1", f.orders.listedByOwner)
}

func TestEstimateOrder_NoSubscriptionDiscount(t *testing.T) {
	f := newFixture(openShop(), customerDocs(), nil)

	est, err := f.svc.EstimateOrder(context.Background(), "shop-1", []ItemInput{
		{DocumentID: "doc-1", PageCount: 10, PaperSize: "A4"},
	})
	require.NoError(t, err)
	require.Len(t, est.ItemPrices, 1)
	// 10 pages at 1.00/page with no discount, even though the demo
	// customer might hold a paid subscription.
	assert.True(t, est.Total.Equal(decimal.RequireFromString("10.00")), "total %s", est.Total)
}

func TestEstimateOrder_ClosedShopStillPriceable(t *testing.T) {
	shops := openShop()
	shops["shop-1"].IsAcceptingOrders = false
	f := newFixture(shops, customerDocs(), nil)

	_, err := f.svc.EstimateOrder(context.Background(), "shop-1", []ItemInput{
		{DocumentID: "doc-1", PageCount: 10, PaperSize: "A4"},
	})
	require.NoError(t, err)
	assert.Nil(t, f.orders.created)
}

func TestEstimateOrder_EmptyItems(t *testing.T) {
	f := newFixture(openShop(), nil, nil)

	_, err := f.svc.EstimateOrder(context.Background(), "shop-1", nil)
	require.ErrorIs(t, err, ErrEmptyItems)
}

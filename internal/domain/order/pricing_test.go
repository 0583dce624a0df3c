package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarxemo/printhub/internal/domain/catalog"
	"github.com/tarxemo/printhub/internal/domain/user"
)

// --- Mock implementations ---

type stubRuleRepo struct {
	rules map[string]*catalog.PricingRule // keyed by shopID + "/" + service
}

func (m *stubRuleRepo) GetRule(_ context.Context, shopID string, service catalog.ServiceType) (*catalog.PricingRule, error) {
	r, ok := m.rules[shopID+"/"+string(service)]
	if !ok {
		return nil, catalog.ErrRuleNotFound
	}
	return r, nil
}

type stubTierRepo struct {
	shop   []catalog.DiscountTier // sorted by MinPages ascending
	global []catalog.DiscountTier
}

func matchTier(tiers []catalog.DiscountTier, pageCount int) (*catalog.DiscountTier, error) {
	for i := range tiers {
		t := &tiers[i]
		if t.MinPages <= pageCount && (t.MaxPages == nil || *t.MaxPages >= pageCount) {
			return t, nil
		}
	}
	return nil, catalog.ErrTierNotFound
}

func (m *stubTierRepo) FindShopTier(_ context.Context, _ string, pageCount int) (*catalog.DiscountTier, error) {
	return matchTier(m.shop, pageCount)
}

func (m *stubTierRepo) FindGlobalTier(_ context.Context, pageCount int) (*catalog.DiscountTier, error) {
	return matchTier(m.global, pageCount)
}

// --- Helpers ---

func bwRule(shopID, basePrice string, modifiers catalog.Modifiers) *catalog.PricingRule {
	return &catalog.PricingRule{
		ShopID:    shopID,
		Service:   catalog.ServicePrintingBW,
		BasePrice: decimal.RequireFromString(basePrice),
		Modifiers: modifiers,
	}
}

func newTestCalculator(rules map[string]*catalog.PricingRule, tiers *stubTierRepo) *Calculator {
	if tiers == nil {
		tiers = &stubTierRepo{}
	}
	return NewCalculator(
		catalog.NewRateResolver(&stubRuleRepo{rules: rules}, catalog.DefaultPricing()),
		catalog.NewTierResolver(tiers),
	)
}

func price(t *testing.T, calc *Calculator, item ItemInput, sub user.Subscription) decimal.Decimal {
	t.Helper()
	p, err := calc.Price(context.Background(), "shop-1", item, sub)
	require.NoError(t, err)
	return p
}

// --- Tests ---

func TestPrice_BaseTimesPagesTimesModifier(t *testing.T) {
	calc := newTestCalculator(map[string]*catalog.PricingRule{
		"shop-1/PRINTING_BW": bwRule("shop-1", "0.10", catalog.Modifiers{"A4": decimal.NewFromInt(1)}),
	}, nil)

	got := price(t, calc, ItemInput{DocumentID: "d1", PageCount: 10, PaperSize: "A4"}, user.SubscriptionNone)
	assert.True(t, got.Equal(decimal.RequireFromString("1.00")), "got %s", got)
}

func TestPrice_TierDiscountApplies(t *testing.T) {
	calc := newTestCalculator(map[string]*catalog.PricingRule{
		"shop-1/PRINTING_BW": bwRule("shop-1", "0.10", nil),
	}, &stubTierRepo{
		global: []catalog.DiscountTier{
			{ID: "t1", MinPages: 10, DiscountPercent: decimal.NewFromInt(10)},
		},
	})

	got := price(t, calc, ItemInput{DocumentID: "d1", PageCount: 10, PaperSize: "A4"}, user.SubscriptionNone)
	assert.True(t, got.Equal(decimal.RequireFromString("0.90")), "got %s", got)
}

func TestPrice_ExtrasAndBusinessDiscount(t *testing.T) {
	// 10 pages x 0.10 = 1.00, minus the 10% tier = 0.90. Binding has no
	// rule so the 1000.00 fallback applies and is not tier-discounted.
	// The 20% business discount covers the whole item: 1000.90 x 0.80.
	calc := newTestCalculator(map[string]*catalog.PricingRule{
		"shop-1/PRINTING_BW": bwRule("shop-1", "0.10", nil),
	}, &stubTierRepo{
		shop: []catalog.DiscountTier{
			{ID: "t1", MinPages: 10, DiscountPercent: decimal.NewFromInt(10)},
		},
	})

	got := price(t, calc, ItemInput{
		DocumentID: "d1", PageCount: 10, PaperSize: "A4", IsBinding: true,
	}, user.SubscriptionBusiness)
	assert.True(t, got.Equal(decimal.RequireFromString("800.72")), "got %s", got)
}

func TestPrice_StudentDiscount(t *testing.T) {
	calc := newTestCalculator(map[string]*catalog.PricingRule{
		"shop-1/PRINTING_BW": bwRule("shop-1", "1.00", nil),
	}, nil)

	got := price(t, calc, ItemInput{DocumentID: "d1", PageCount: 100, PaperSize: "A4"}, user.SubscriptionStudent)
	assert.True(t, got.Equal(decimal.RequireFromString("90.00")), "got %s", got)
}

func TestPrice_ColorDefaultRate(t *testing.T) {
	calc := newTestCalculator(nil, nil)

	got := price(t, calc, ItemInput{DocumentID: "d1", PageCount: 10, IsColor: true, PaperSize: "A4"}, user.SubscriptionNone)
	assert.True(t, got.Equal(decimal.NewFromInt(5000)), "got %s", got)
}

func TestPrice_SizeModifier(t *testing.T) {
	calc := newTestCalculator(map[string]*catalog.PricingRule{
		"shop-1/PRINTING_BW": bwRule("shop-1", "100", catalog.Modifiers{
			"A3": decimal.RequireFromString("1.5"),
		}),
	}, nil)

	got := price(t, calc, ItemInput{DocumentID: "d1", PageCount: 2, PaperSize: "A3"}, user.SubscriptionNone)
	assert.True(t, got.Equal(decimal.NewFromInt(300)), "got %s", got)
}

func TestPrice_UnknownSizeModifierIsOne(t *testing.T) {
	calc := newTestCalculator(map[string]*catalog.PricingRule{
		"shop-1/PRINTING_BW": bwRule("shop-1", "100", catalog.Modifiers{
			"A3": decimal.RequireFromString("1.5"),
		}),
	}, nil)

	got := price(t, calc, ItemInput{DocumentID: "d1", PageCount: 2, PaperSize: "LEGAL"}, user.SubscriptionNone)
	assert.True(t, got.Equal(decimal.NewFromInt(200)), "got %s", got)
}

func TestPrice_BothExtras(t *testing.T) {
	calc := newTestCalculator(map[string]*catalog.PricingRule{
		"shop-1/PRINTING_BW": bwRule("shop-1", "1.00", nil),
		"shop-1/BINDING": {
			ShopID:    "shop-1",
			Service:   catalog.ServiceBinding,
			BasePrice: decimal.RequireFromString("500.00"),
		},
	}, nil)

	// Binding uses the configured 500.00; lamination has no rule and falls
	// back to 1000.00.
	got := price(t, calc, ItemInput{
		DocumentID: "d1", PageCount: 10, PaperSize: "A4",
		IsBinding: true, IsLamination: true,
	}, user.SubscriptionNone)
	assert.True(t, got.Equal(decimal.RequireFromString("1510.00")), "got %s", got)
}

func TestPrice_Deterministic(t *testing.T) {
	calc := newTestCalculator(map[string]*catalog.PricingRule{
		"shop-1/PRINTING_BW": bwRule("shop-1", "0.10", nil),
	}, &stubTierRepo{
		global: []catalog.DiscountTier{
			{ID: "t1", MinPages: 10, DiscountPercent: decimal.NewFromInt(10)},
		},
	})

	item := ItemInput{DocumentID: "d1", PageCount: 50, PaperSize: "A4", IsBinding: true}
	first := price(t, calc, item, user.SubscriptionStudent)
	second := price(t, calc, item, user.SubscriptionStudent)
	assert.True(t, first.Equal(second))
}

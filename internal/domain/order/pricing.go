package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/tarxemo/printhub/internal/domain/catalog"
	"github.com/tarxemo/printhub/internal/domain/user"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)

	studentDiscount  = decimal.RequireFromString("0.10")
	businessDiscount = decimal.RequireFromString("0.20")
)

// Calculator computes the price of a single order item from resolved
// pricing rules and discount tiers. It has no side effects and persists
// nothing: identical inputs against unchanged rule state yield identical
// prices.
type Calculator struct {
	rates *catalog.RateResolver
	tiers *catalog.TierResolver
}

// NewCalculator creates a Calculator over the given resolvers.
func NewCalculator(rates *catalog.RateResolver, tiers *catalog.TierResolver) *Calculator {
	return &Calculator{rates: rates, tiers: tiers}
}

// Price computes the price of one item, in fixed order: base rate times
// pages times size modifier, then the page-range tier discount, then extras
// (binding and lamination, which are not tier-discounted), then the
// subscription discount over the whole item. Pass user.SubscriptionNone for
// estimate-only calls with no customer context.
func (c *Calculator) Price(ctx context.Context, shopID string, item ItemInput, sub user.Subscription) (decimal.Decimal, error) {
	service := catalog.ServicePrintingBW
	if item.IsColor {
		service = catalog.ServicePrintingColor
	}

	rate, err := c.rates.ResolveRate(ctx, shopID, service)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "resolve rate")
	}

	pages := decimal.NewFromInt(int64(item.PageCount))
	raw := pages.Mul(rate.BasePrice).Mul(rate.ModifierFor(item.PaperSize))

	percent, err := c.tiers.ResolveTier(ctx, shopID, item.PageCount)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "resolve tier")
	}
	raw = raw.Sub(raw.Mul(percent).Div(hundred))

	extras := decimal.Zero
	if item.IsBinding {
		p, err := c.rates.ResolveExtra(ctx, shopID, catalog.ServiceBinding)
		if err != nil {
			return decimal.Zero, errors.Wrap(err, "resolve binding rate")
		}
		extras = extras.Add(p)
	}
	if item.IsLamination {
		p, err := c.rates.ResolveExtra(ctx, shopID, catalog.ServiceLamination)
		if err != nil {
			return decimal.Zero, errors.Wrap(err, "resolve lamination rate")
		}
		extras = extras.Add(p)
	}

	total := raw.Add(extras)
	total = total.Mul(one.Sub(subscriptionDiscount(sub)))

	return total.Round(2), nil
}

// subscriptionDiscount returns the flat discount fraction for a
// subscription tier. FREE and unknown tiers get no discount.
func subscriptionDiscount(sub user.Subscription) decimal.Decimal {
	switch sub {
	case user.SubscriptionStudent:
		return studentDiscount
	case user.SubscriptionBusiness:
		return businessDiscount
	default:
		return decimal.Zero
	}
}

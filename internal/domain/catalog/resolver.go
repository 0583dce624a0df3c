package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Defaults holds the fallback rates used when a shop has no pricing rule
// configured. They are injected rather than hard-coded so tests can supply
// their own values.
type Defaults struct {
	// BlackWhiteRate is the per-page rate for PRINTING_BW without a rule.
	BlackWhiteRate decimal.Decimal
	// ColorRate is the per-page rate for PRINTING_COLOR without a rule.
	ColorRate decimal.Decimal
	// ExtraServiceRate is the flat charge for binding or lamination when
	// the shop has no rule for that service.
	ExtraServiceRate decimal.Decimal
}

// DefaultPricing returns the production fallback rates.
func DefaultPricing() Defaults {
	return Defaults{
		BlackWhiteRate:   decimal.NewFromInt(100),
		ColorRate:        decimal.NewFromInt(500),
		ExtraServiceRate: decimal.NewFromInt(1000),
	}
}

// Rate is a resolved base rate plus its size modifiers.
type Rate struct {
	BasePrice decimal.Decimal
	Modifiers Modifiers
}

// ModifierFor returns the size modifier for the given paper size,
// defaulting to 1.0.
func (r Rate) ModifierFor(size string) decimal.Decimal {
	return r.Modifiers.For(size)
}

// RateResolver resolves the base rate and modifiers for a shop and service
// type, substituting defaults when the shop has no rule. Lookups are
// read-only and safe to run concurrently.
type RateResolver struct {
	rules    RuleRepository
	defaults Defaults
}

// NewRateResolver creates a RateResolver over the given rule store.
func NewRateResolver(rules RuleRepository, defaults Defaults) *RateResolver {
	return &RateResolver{rules: rules, defaults: defaults}
}

// ResolveRate returns the rate for a printing service. A missing rule is
// not an error: black-and-white and color printing fall back to the
// configured default rates with an empty modifier map.
func (r *RateResolver) ResolveRate(ctx context.Context, shopID string, service ServiceType) (Rate, error) {
	rule, err := r.rules.GetRule(ctx, shopID, service)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			switch service {
			case ServicePrintingBW:
				return Rate{BasePrice: r.defaults.BlackWhiteRate}, nil
			case ServicePrintingColor:
				return Rate{BasePrice: r.defaults.ColorRate}, nil
			}
		}
		return Rate{}, errors.Wrap(err, "get pricing rule")
	}
	return Rate{BasePrice: rule.BasePrice, Modifiers: rule.Modifiers}, nil
}

// ResolveExtra returns the flat price for an extra service (binding or
// lamination). A missing rule falls back to the default extra rate.
func (r *RateResolver) ResolveExtra(ctx context.Context, shopID string, service ServiceType) (decimal.Decimal, error) {
	rule, err := r.rules.GetRule(ctx, shopID, service)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return r.defaults.ExtraServiceRate, nil
		}
		return decimal.Zero, errors.Wrap(err, "get pricing rule")
	}
	return rule.BasePrice, nil
}

// TierResolver resolves the page-range discount for a shop and page count.
// Shop-specific tiers are tried first, then global tiers; matching tiers
// are never merged.
type TierResolver struct {
	tiers TierRepository
}

// NewTierResolver creates a TierResolver over the given tier store.
func NewTierResolver(tiers TierRepository) *TierResolver {
	return &TierResolver{tiers: tiers}
}

// ResolveTier returns the discount percentage applicable to the page count,
// or zero when no tier matches.
func (t *TierResolver) ResolveTier(ctx context.Context, shopID string, pageCount int) (decimal.Decimal, error) {
	tier, err := t.tiers.FindShopTier(ctx, shopID, pageCount)
	if err == nil {
		return tier.DiscountPercent, nil
	}
	if !errors.Is(err, ErrTierNotFound) {
		return decimal.Zero, errors.Wrap(err, "find shop tier")
	}

	tier, err = t.tiers.FindGlobalTier(ctx, pageCount)
	if err == nil {
		return tier.DiscountPercent, nil
	}
	if !errors.Is(err, ErrTierNotFound) {
		return decimal.Zero, errors.Wrap(err, "find global tier")
	}

	return decimal.Zero, nil
}

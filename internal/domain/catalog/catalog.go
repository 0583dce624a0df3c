package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ServiceType enumerates the categories of service a print shop offers.
type ServiceType string

const (
	ServicePrintingBW    ServiceType = "PRINTING_BW"
	ServicePrintingColor ServiceType = "PRINTING_COLOR"
	ServiceBinding       ServiceType = "BINDING"
	ServiceLamination    ServiceType = "LAMINATION"
	ServiceScanning      ServiceType = "SCANNING"
)

var (
	// ErrRuleNotFound is returned when a shop has no pricing rule for a
	// service type. For printing services this is normal control flow and
	// the resolver substitutes a default rate.
	ErrRuleNotFound = errors.New("pricing rule not found")

	// ErrTierNotFound is returned when no page-range discount tier covers
	// a page count. The caller treats it as a zero discount.
	ErrTierNotFound = errors.New("discount tier not found")
)

// knownPaperSizes is the closed set of size labels a modifier map may use.
var knownPaperSizes = map[string]struct{}{
	"A3": {}, "A4": {}, "A5": {}, "LETTER": {}, "LEGAL": {},
}

// Modifiers maps a paper size label to a multiplicative price modifier.
type Modifiers map[string]decimal.Decimal

// For returns the modifier for the given paper size. Unknown or absent
// labels resolve to 1.0.
func (m Modifiers) For(size string) decimal.Decimal {
	if v, ok := m[size]; ok {
		return v
	}
	return decimal.NewFromInt(1)
}

// Validate checks that every modifier key is a known paper size label.
// Called at rule write time; reads tolerate unknown keys instead.
func (m Modifiers) Validate() error {
	for size := range m {
		if _, ok := knownPaperSizes[size]; !ok {
			return errors.Errorf("unknown paper size %q", size)
		}
	}
	return nil
}

// PricingRule is a shop's price for one service type. Rules are unique per
// (shop, service type) pair and read-only to the pricing engine.
type PricingRule struct {
	ShopID    string
	Service   ServiceType
	BasePrice decimal.Decimal
	Modifiers Modifiers
}

// DiscountTier is a page-range discount, either global (ShopID nil) or
// specific to one shop. MaxPages nil means the range is unbounded above.
type DiscountTier struct {
	ID              string
	ShopID          *string
	MinPages        int
	MaxPages        *int
	DiscountPercent decimal.Decimal
}

// RuleRepository provides lookup of shop pricing rules.
type RuleRepository interface {
	// GetRule returns the unique rule for (shop, service type), or
	// ErrRuleNotFound when the shop has not configured one.
	GetRule(ctx context.Context, shopID string, service ServiceType) (*PricingRule, error)
}

// TierRepository provides lookup of page-range discount tiers. Both finders
// must return the matching tier with the smallest min_pages: when ranges
// overlap, the ascending order decides, not the deepest discount.
type TierRepository interface {
	FindShopTier(ctx context.Context, shopID string, pageCount int) (*DiscountTier, error)
	FindGlobalTier(ctx context.Context, pageCount int) (*DiscountTier, error)
}
